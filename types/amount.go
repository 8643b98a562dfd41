package types

import "fmt"

// Amount is an unsigned ledger amount in the smallest unit.
// All arithmetic is integer-only and overflow-checked — no floating point,
// and no silent wraparound on adversarial fee or day values.
type Amount uint64

// Add returns a+b. The second result is false on overflow.
func (a Amount) Add(b Amount) (Amount, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// Sub returns a-b. The second result is false when b exceeds a; an Amount
// can never go negative.
func (a Amount) Sub(b Amount) (Amount, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// Mul returns a*n. The second result is false on overflow.
func (a Amount) Mul(n uint64) (Amount, bool) {
	if a == 0 || n == 0 {
		return 0, true
	}
	prod := a * Amount(n)
	if prod/Amount(n) != a {
		return 0, false
	}
	return prod, true
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// String returns the amount in base units.
func (a Amount) String() string { return fmt.Sprintf("%d", uint64(a)) }
