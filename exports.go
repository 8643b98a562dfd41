package rental

import "github.com/xraph/rental/types"

// Re-export common types for convenience so users don't have to import types package.

// Principal is re-exported from types package.
type Principal = types.Principal

// Amount is re-exported from types package.
type Amount = types.Amount

// Height is re-exported from types package.
type Height = types.Height
