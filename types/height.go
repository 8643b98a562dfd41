package types

// Height is a logical-clock value (block height) supplied by the external
// ordering layer. The engine only ever compares heights and adds block
// offsets to them; it has no notion of wall-clock time.
type Height uint64

// Add returns the height advanced by the given number of blocks.
func (h Height) Add(blocks uint64) Height { return h + Height(blocks) }

// Before reports whether h is strictly less than other.
func (h Height) Before(other Height) bool { return h < other }

// AtOrAfter reports whether h is greater than or equal to other.
func (h Height) AtOrAfter(other Height) bool { return h >= other }
