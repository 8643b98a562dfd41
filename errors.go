package rental

import (
	"errors"
	"fmt"
)

// Error is a typed failure carrying the stable numeric code and name the
// wire interface exposes. Codes never change once assigned; external
// callers match on them for compatibility.
type Error struct {
	Code uint32
	Name string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rental: %s (code %d)", e.Name, e.Code)
}

// Sentinel errors for every failure a transition or the dispatcher can
// return. Codes 100, 101 and 105-108 are pinned by the wire contract;
// 102-104 and 109 fill the unused slots for conditions the contract
// implies but does not number.
var (
	ErrOwnerOnly             = &Error{Code: 100, Name: "err-owner-only"}
	ErrInsufficientBalance   = &Error{Code: 101, Name: "err-insufficient-balance"}
	ErrUnknownFunction       = &Error{Code: 102, Name: "err-invalid-instrument-class"}
	ErrInvalidAmount         = &Error{Code: 103, Name: "err-invalid-amount"}
	ErrInvalidTransaction    = &Error{Code: 104, Name: "err-invalid-transaction"}
	ErrUnauthorized          = &Error{Code: 105, Name: "err-unauthorized"}
	ErrInvalidInstrument     = &Error{Code: 106, Name: "err-invalid-instrument"}
	ErrInstrumentUnavailable = &Error{Code: 107, Name: "err-instrument-unavailable"}
	ErrInvalidRentalPeriod   = &Error{Code: 108, Name: "err-invalid-rental-period"}
	ErrMalformedArgs         = &Error{Code: 109, Name: "err-malformed-args"}
)

// AsError unwraps err into the typed *Error if one is in its chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
