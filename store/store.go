// Package store defines the unified persistence interface for the rental
// engine: three logical maps (balances, instruments, transaction records)
// plus two monotonic counters.
package store

import (
	"context"

	"github.com/xraph/rental/instrument"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

// Store is the unified storage interface for all engine entities. Mutators
// validate entity invariants before committing; a write that would violate
// them fails without becoming observable. Implementations must be safe for
// concurrent use even though the engine itself executes transitions
// strictly sequentially.
type Store interface {
	// Balance methods. GetBalance returns zero for unknown principals.
	GetBalance(ctx context.Context, p types.Principal) (types.Amount, error)
	SetBalance(ctx context.Context, p types.Principal, amount types.Amount) error

	// Instrument methods
	CreateInstrument(ctx context.Context, inst *instrument.Instrument) error
	GetInstrument(ctx context.Context, instrumentID uint64) (*instrument.Instrument, error)
	UpdateInstrument(ctx context.Context, inst *instrument.Instrument) error
	ListInstruments(ctx context.Context, opts instrument.ListOpts) ([]*instrument.Instrument, error)

	// Transaction record methods
	CreateTransaction(ctx context.Context, rec *txrecord.Record) error
	GetTransaction(ctx context.Context, txID uint64) (*txrecord.Record, error)
	UpdateTransaction(ctx context.Context, rec *txrecord.Record) error
	ListTransactions(ctx context.Context, opts txrecord.ListOpts) ([]*txrecord.Record, error)

	// Counter methods. Next* read the counter without consuming it;
	// Allocate* return the next id and advance the counter in one call,
	// so an id is never issued twice.
	NextInstrumentID(ctx context.Context) (uint64, error)
	NextTransactionID(ctx context.Context) (uint64, error)
	AllocateInstrumentID(ctx context.Context) (uint64, error)
	AllocateTransactionID(ctx context.Context) (uint64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
