// Package txrecord defines the immutable-by-append transaction records the
// ledger writes for every value-moving transition.
package txrecord

import (
	"fmt"

	"github.com/xraph/rental/types"
)

// Type classifies what moved value.
type Type string

const (
	TypeRental   Type = "rental"
	TypePurchase Type = "purchase"
	TypeDeposit  Type = "deposit"
	TypeRefund   Type = "refund"
)

// Valid reports whether t is a known record type.
func (t Type) Valid() bool {
	switch t {
	case TypeRental, TypePurchase, TypeDeposit, TypeRefund:
		return true
	}
	return false
}

// Status is the settlement state of a record. All transitions are one-way;
// no record ever returns to active.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
	StatusOverdue   Status = "overdue"
)

// Valid reports whether s is a known record status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusRefunded, StatusOverdue:
		return true
	}
	return false
}

// CanTransitionTo reports whether the one-way status machine allows
// moving from s to next: active → completed | overdue | refunded,
// overdue → refunded.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusCompleted || next == StatusOverdue || next == StatusRefunded
	case StatusOverdue:
		return next == StatusRefunded
	}
	return false
}

// Record is a single transaction record. IDs are sequential and issued by
// the store's transaction counter; records are never deleted.
// RentalPeriodDays and Expiry are set only for rental records, where
// Expiry = Timestamp + RentalPeriodDays × blocks-per-day.
// InstrumentID is zero for deposits, which reference no instrument.
type Record struct {
	ID               uint64          `json:"id"`
	User             types.Principal `json:"user"`
	InstrumentID     uint64          `json:"instrument_id"`
	Amount           types.Amount    `json:"amount"`
	Type             Type            `json:"type"`
	Status           Status          `json:"status"`
	RentalPeriodDays *uint64         `json:"rental_period_days,omitempty"`
	Timestamp        types.Height    `json:"timestamp"`
	Expiry           *types.Height   `json:"expiry,omitempty"`
}

// Validate enforces the record invariants before a store commits a write.
func (r *Record) Validate() error {
	if r.ID == 0 {
		return fmt.Errorf("txrecord: zero id")
	}
	if r.User.IsZero() {
		return fmt.Errorf("txrecord %d: missing user", r.ID)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("txrecord %d: unknown type %q", r.ID, r.Type)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("txrecord %d: unknown status %q", r.ID, r.Status)
	}
	if (r.RentalPeriodDays == nil) != (r.Expiry == nil) {
		return fmt.Errorf("txrecord %d: rental period and expiry must be set together", r.ID)
	}
	if r.Type == TypeRental && r.RentalPeriodDays == nil {
		return fmt.Errorf("txrecord %d: rental record without rental period", r.ID)
	}
	if r.Type != TypeRental && r.RentalPeriodDays != nil {
		return fmt.Errorf("txrecord %d: %s record with rental period", r.ID, r.Type)
	}
	return nil
}

// Clone returns a deep copy. Stores hand out clones so no caller holds a
// reference into committed state.
func (r *Record) Clone() *Record {
	c := *r
	if r.RentalPeriodDays != nil {
		v := *r.RentalPeriodDays
		c.RentalPeriodDays = &v
	}
	if r.Expiry != nil {
		v := *r.Expiry
		c.Expiry = &v
	}
	return &c
}

// ListOpts filters transaction listings. Zero values match everything;
// InstrumentID zero matches any instrument (real ids start at 1).
type ListOpts struct {
	User           types.Principal
	InstrumentID   uint64
	Type           Type
	Status         Status
	ExpiringBefore *types.Height
	Limit          int
	Offset         int
}
