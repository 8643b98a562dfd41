package instrument

import (
	"fmt"

	"github.com/xraph/rental/types"
)

// Status is the lifecycle state of an instrument.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusRented      Status = "rented"
	StatusMaintenance Status = "maintenance"
	StatusSold        Status = "sold"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusRented, StatusMaintenance, StatusSold:
		return true
	}
	return false
}

// Instrument is a catalogued instrument. IDs are sequential and issued by
// the store's instrument counter; instruments are never deleted, only
// retired via status.
type Instrument struct {
	ID             uint64           `json:"id"`
	Name           string           `json:"name"`
	Category       string           `json:"category"`
	DailyRentalFee types.Amount     `json:"daily_rental_fee"`
	PurchasePrice  types.Amount     `json:"purchase_price"`
	Status         Status           `json:"status"`
	Owner          *types.Principal `json:"owner,omitempty"`
	Renter         *types.Principal `json:"renter,omitempty"`
	RentalExpiry   *types.Height    `json:"rental_expiry,omitempty"`
}

// Validate enforces the instrument invariants:
// renter and rental-expiry are both present or both absent,
// status "rented" iff a renter is set, and status "sold" iff an owner is set.
// Store mutators call this before committing a write.
func (i *Instrument) Validate() error {
	if i.ID == 0 {
		return fmt.Errorf("instrument: zero id")
	}
	if !i.Status.Valid() {
		return fmt.Errorf("instrument %d: unknown status %q", i.ID, i.Status)
	}
	if (i.Renter == nil) != (i.RentalExpiry == nil) {
		return fmt.Errorf("instrument %d: renter and rental expiry must be set together", i.ID)
	}
	if (i.Status == StatusRented) != (i.Renter != nil) {
		return fmt.Errorf("instrument %d: status %q inconsistent with renter presence", i.ID, i.Status)
	}
	if (i.Status == StatusSold) != (i.Owner != nil) {
		return fmt.Errorf("instrument %d: status %q inconsistent with owner presence", i.ID, i.Status)
	}
	return nil
}

// Available reports whether the instrument can be rented or purchased.
func (i *Instrument) Available() bool { return i.Status == StatusAvailable }

// RentedBy reports whether the instrument is currently rented by p.
func (i *Instrument) RentedBy(p types.Principal) bool {
	return i.Status == StatusRented && i.Renter != nil && *i.Renter == p
}

// Clone returns a deep copy. Stores hand out clones so no caller holds a
// reference into committed state.
func (i *Instrument) Clone() *Instrument {
	c := *i
	if i.Owner != nil {
		v := *i.Owner
		c.Owner = &v
	}
	if i.Renter != nil {
		v := *i.Renter
		c.Renter = &v
	}
	if i.RentalExpiry != nil {
		v := *i.RentalExpiry
		c.RentalExpiry = &v
	}
	return &c
}

// ListOpts filters instrument listings.
type ListOpts struct {
	Status Status
	Renter types.Principal
	Owner  types.Principal
	Limit  int
	Offset int
}
