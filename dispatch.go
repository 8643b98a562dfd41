package rental

import (
	"context"
	"sync"

	"github.com/xraph/rental/id"
	"github.com/xraph/rental/instrument"
	"github.com/xraph/rental/types"
)

// Wire function names. These are the stable strings external callers
// dispatch on; they never change once published.
const (
	FnRegisterInstrument     = "register-instrument"
	FnUpdateInstrumentStatus = "update-instrument-status"
	FnDeposit                = "deposit"
	FnPurchaseInstrument     = "purchase-instrument"
	FnRentInstrument         = "rent-instrument"
	FnExtendRental           = "extend-rental"
	FnReturnInstrument       = "return-instrument"
	FnProcessRefund          = "process-refund"
	FnMarkOverdueRentals     = "mark-overdue-rentals"

	FnGetBalance            = "get-balance"
	FnGetInstrument         = "get-instrument"
	FnGetTransaction        = "get-transaction"
	FnGetNextInstrumentID   = "get-next-instrument-id"
	FnGetNextTransactionID  = "get-next-tx-id"
	FnIsInstrumentAvailable = "is-instrument-available"
	FnIsRentalActive        = "is-rental-active"
)

// Request is a single call into the engine: who is calling, what function,
// positional arguments, and the logical clock value the transition executes
// at. The clock is supplied by the caller's ordering layer, never read from
// the system.
type Request struct {
	Caller   types.Principal `json:"caller"`
	Function string          `json:"function"`
	Args     []any           `json:"args"`
	Clock    types.Height    `json:"clock"`
}

// Response is the outcome of a dispatched request. Exactly one of
// Success/ErrorCode is meaningful: on success ErrorCode is zero and Value
// holds the function result; on failure Value is nil and ErrorCode and
// ErrorName identify the failure. Receipt is set only for successful
// state-changing calls.
type Response struct {
	Success   bool   `json:"success"`
	Receipt   string `json:"receipt,omitempty"`
	Value     any    `json:"value,omitempty"`
	ErrorCode uint32 `json:"error_code,omitempty"`
	ErrorName string `json:"error_name,omitempty"`
}

// Dispatcher routes wire requests to engine transitions. It serializes all
// state-changing calls through a single mutex so transitions execute
// strictly one at a time in arrival order, which is what makes outcomes
// reproducible from the request sequence alone. Read-only functions bypass
// the mutex.
type Dispatcher struct {
	engine *Engine

	mu sync.Mutex
}

// NewDispatcher creates a dispatcher for the engine.
func NewDispatcher(e *Engine) *Dispatcher {
	return &Dispatcher{engine: e}
}

// Dispatch executes a request and always returns a response; engine errors
// surface as coded responses, never as Go errors. Unknown functions fail
// with code 102, malformed arguments with code 109.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	switch req.Function {
	case FnGetBalance, FnGetInstrument, FnGetTransaction,
		FnGetNextInstrumentID, FnGetNextTransactionID,
		FnIsInstrumentAvailable, FnIsRentalActive:
		return d.dispatchRead(ctx, req)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dispatchWrite(ctx, req)
}

func (d *Dispatcher) dispatchWrite(ctx context.Context, req *Request) *Response {
	e := d.engine

	switch req.Function {
	case FnRegisterInstrument:
		name, err := argString(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		category, err := argString(req.Args, 1)
		if err != nil {
			return fail(err)
		}
		fee, err := argAmount(req.Args, 2)
		if err != nil {
			return fail(err)
		}
		price, err := argAmount(req.Args, 3)
		if err != nil {
			return fail(err)
		}
		inst, err := e.RegisterInstrument(ctx, req.Caller, name, category, fee, price)
		if err != nil {
			return fail(err)
		}
		return ok(inst.ID)

	case FnUpdateInstrumentStatus:
		instrumentID, err := argUint64(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		status, err := argString(req.Args, 1)
		if err != nil {
			return fail(err)
		}
		if err := e.UpdateInstrumentStatus(ctx, req.Caller, instrumentID, instrument.Status(status)); err != nil {
			return fail(err)
		}
		return ok(true)

	case FnDeposit:
		amount, err := argAmount(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		balance, err := e.Deposit(ctx, req.Caller, req.Clock, amount)
		if err != nil {
			return fail(err)
		}
		return ok(balance)

	case FnPurchaseInstrument:
		instrumentID, err := argUint64(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		rec, err := e.PurchaseInstrument(ctx, req.Caller, req.Clock, instrumentID)
		if err != nil {
			return fail(err)
		}
		return ok(rec.ID)

	case FnRentInstrument:
		instrumentID, err := argUint64(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		days, err := argUint64(req.Args, 1)
		if err != nil {
			return fail(err)
		}
		rec, err := e.RentInstrument(ctx, req.Caller, req.Clock, instrumentID, days)
		if err != nil {
			return fail(err)
		}
		return ok(rec.ID)

	case FnExtendRental:
		instrumentID, err := argUint64(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		days, err := argUint64(req.Args, 1)
		if err != nil {
			return fail(err)
		}
		rec, err := e.ExtendRental(ctx, req.Caller, req.Clock, instrumentID, days)
		if err != nil {
			return fail(err)
		}
		return ok(*rec.Expiry)

	case FnReturnInstrument:
		instrumentID, err := argUint64(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		if err := e.ReturnInstrument(ctx, req.Caller, req.Clock, instrumentID); err != nil {
			return fail(err)
		}
		return ok(true)

	case FnProcessRefund:
		txID, err := argUint64(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		refund, err := e.ProcessRefund(ctx, req.Caller, req.Clock, txID)
		if err != nil {
			return fail(err)
		}
		return ok(refund.ID)

	case FnMarkOverdueRentals:
		count, err := e.MarkOverdueRentals(ctx, req.Caller, req.Clock)
		if err != nil {
			return fail(err)
		}
		return ok(count)
	}

	return fail(ErrUnknownFunction)
}

func (d *Dispatcher) dispatchRead(ctx context.Context, req *Request) *Response {
	e := d.engine

	switch req.Function {
	case FnGetBalance:
		p, err := argPrincipal(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		balance, err := e.GetBalance(ctx, p)
		if err != nil {
			return fail(err)
		}
		return okRead(balance)

	case FnGetInstrument:
		instrumentID, err := argUint64(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		inst, err := e.GetInstrument(ctx, instrumentID)
		if err != nil {
			// Reads mirror map lookups: a missing entry is an empty
			// result, not a failure.
			return okRead(nil)
		}
		return okRead(inst)

	case FnGetTransaction:
		txID, err := argUint64(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		rec, err := e.GetTransaction(ctx, txID)
		if err != nil {
			return okRead(nil)
		}
		return okRead(rec)

	case FnGetNextInstrumentID:
		next, err := e.NextInstrumentID(ctx)
		if err != nil {
			return fail(err)
		}
		return okRead(next)

	case FnGetNextTransactionID:
		next, err := e.NextTransactionID(ctx)
		if err != nil {
			return fail(err)
		}
		return okRead(next)

	case FnIsInstrumentAvailable:
		instrumentID, err := argUint64(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		available, err := e.IsInstrumentAvailable(ctx, instrumentID)
		if err != nil {
			return okRead(false)
		}
		return okRead(available)

	case FnIsRentalActive:
		instrumentID, err := argUint64(req.Args, 0)
		if err != nil {
			return fail(err)
		}
		active, err := e.IsRentalActive(ctx, instrumentID, req.Clock)
		if err != nil {
			return okRead(false)
		}
		return okRead(active)
	}

	return fail(ErrUnknownFunction)
}

func ok(value any) *Response {
	return &Response{
		Success: true,
		Receipt: id.NewReceiptID().String(),
		Value:   value,
	}
}

func okRead(value any) *Response {
	return &Response{Success: true, Value: value}
}

func fail(err error) *Response {
	if e, isCoded := AsError(err); isCoded {
		return &Response{ErrorCode: e.Code, ErrorName: e.Name}
	}
	return &Response{ErrorCode: ErrMalformedArgs.Code, ErrorName: ErrMalformedArgs.Name}
}

// ──────────────────────────────────────────────────
// Argument coercion
// ──────────────────────────────────────────────────

func argString(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", ErrMalformedArgs
	}
	s, isString := args[i].(string)
	if !isString {
		return "", ErrMalformedArgs
	}
	return s, nil
}

func argPrincipal(args []any, i int) (types.Principal, error) {
	s, err := argString(args, i)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", ErrMalformedArgs
	}
	return types.Principal(s), nil
}

// argUint64 accepts the integer encodings a JSON decoder produces.
func argUint64(args []any, i int) (uint64, error) {
	if i >= len(args) {
		return 0, ErrMalformedArgs
	}
	switch v := args[i].(type) {
	case uint64:
		return v, nil
	case uint:
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, ErrMalformedArgs
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, ErrMalformedArgs
		}
		return uint64(v), nil
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, ErrMalformedArgs
		}
		return uint64(v), nil
	case types.Amount:
		return uint64(v), nil
	case types.Height:
		return uint64(v), nil
	}
	return 0, ErrMalformedArgs
}

func argAmount(args []any, i int) (types.Amount, error) {
	v, err := argUint64(args, i)
	if err != nil {
		return 0, err
	}
	return types.Amount(v), nil
}
