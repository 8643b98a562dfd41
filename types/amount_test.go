package types

import (
	"math"
	"testing"
)

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   func() (Amount, bool)
		want Amount
		ok   bool
	}{
		{"Add", func() (Amount, bool) { return Amount(100).Add(200) }, 300, true},
		{"AddOverflow", func() (Amount, bool) { return Amount(math.MaxUint64).Add(1) }, 0, false},
		{"Sub", func() (Amount, bool) { return Amount(500).Sub(200) }, 300, true},
		{"SubUnderflow", func() (Amount, bool) { return Amount(10).Sub(11) }, 0, false},
		{"SubToZero", func() (Amount, bool) { return Amount(10).Sub(10) }, 0, true},
		{"Mul", func() (Amount, bool) { return Amount(10).Mul(7) }, 70, true},
		{"MulZero", func() (Amount, bool) { return Amount(0).Mul(7) }, 0, true},
		{"MulByZero", func() (Amount, bool) { return Amount(10).Mul(0) }, 0, true},
		{"MulOverflow", func() (Amount, bool) { return Amount(math.MaxUint64 / 2).Mul(3) }, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.op()
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHeightComparisons(t *testing.T) {
	if !Height(100).Before(101) {
		t.Error("100 should be before 101")
	}
	if Height(101).Before(101) {
		t.Error("101 should not be before itself")
	}
	if !Height(101).AtOrAfter(101) {
		t.Error("101 should be at or after itself")
	}
	if got := Height(12300).Add(5 * 144); got != 13020 {
		t.Errorf("Add: got %d, want 13020", got)
	}
}
