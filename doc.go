// Package rental provides a deterministic state-transition engine for an
// instrument rental and purchase ledger.
//
// Rental is designed as a library, not a service. Import it directly into
// your Go application and drive it from whatever ordering layer you have.
// It provides:
//
//   - Account balances with deposit, purchase, rental and refund flows
//   - An instrument catalogue with sequential ids and lifecycle statuses
//   - Block-height based rental expiry with overdue sweeps
//   - A wire dispatcher with stable function names and numeric error codes
//   - Pluggable hooks for audit trails, metrics and event publishing
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/rental"
//	    "github.com/xraph/rental/store/memory"
//	)
//
//	store := memory.New()
//	engine := rental.New(store, "owner-principal")
//
//	ctx := context.Background()
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Core Concepts
//
// Every state change is a transition: a pure function of the current state,
// the caller, the logical clock and the arguments. Given the same store
// contents and inputs, a transition always produces the same outcome, so a
// ledger can be rebuilt by replaying the request sequence. A transition
// either commits fully or changes nothing.
//
// The owner principal, fixed at construction, catalogues instruments and
// runs administrative transitions. Any principal can deposit, purchase,
// rent, extend and return:
//
//	inst, err := engine.RegisterInstrument(ctx, owner, "Stratocaster", "guitar", 10, 1500)
//	balance, err := engine.Deposit(ctx, "alice", now, 500)
//	rec, err := engine.RentInstrument(ctx, "alice", now, inst.ID, 7)
//
// Time is a block height supplied by the caller; the engine never reads a
// system clock. Rental days convert to heights at a fixed rate (144 blocks
// per day by default), so a 5-day rental at height 12300 expires at 13020.
//
// # Wire Interface
//
// The Dispatcher exposes the engine under stable hyphenated function names
// (rent-instrument, process-refund, ...) with numeric error codes, for
// callers that speak the wire contract rather than the Go API:
//
//	d := rental.NewDispatcher(engine)
//	resp := d.Dispatch(ctx, &rental.Request{
//	    Caller:   "alice",
//	    Function: rental.FnRentInstrument,
//	    Args:     []any{uint64(1), uint64(7)},
//	    Clock:    12300,
//	})
//
// All amounts are unsigned integers in the smallest unit; arithmetic is
// overflow-checked and balances can never go negative.
//
// # Identity
//
// Ledger entities use sequential counter-issued ids starting at 1 so that
// replayed ledgers reproduce identical state. TypeIDs appear only outside
// replicated state: dispatch receipts (rcpt_...) and audit events
// (aevt_...).
package rental
