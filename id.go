package rental

import "github.com/xraph/rental/id"

// ReceiptID identifies a dispatch receipt.
type ReceiptID = id.ID

// Prefix identifies the artifact type encoded in a TypeID.
type Prefix = id.Prefix
