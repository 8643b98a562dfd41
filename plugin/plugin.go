// Package plugin provides an extensible plugin system for the rental
// engine. Plugins can hook into transition events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/rental/instrument"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized. The engine is passed as
// interface{} to avoid an import cycle with the root package.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Instrument hooks
// ──────────────────────────────────────────────────

// OnInstrumentRegistered is called when a new instrument is catalogued.
type OnInstrumentRegistered interface {
	Plugin
	OnInstrumentRegistered(ctx context.Context, inst *instrument.Instrument) error
}

// OnInstrumentStatusChanged is called when the owner re-statuses an
// instrument between available and maintenance.
type OnInstrumentStatusChanged interface {
	Plugin
	OnInstrumentStatusChanged(ctx context.Context, inst *instrument.Instrument, prev instrument.Status) error
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnDeposit is called when a deposit is credited.
type OnDeposit interface {
	Plugin
	OnDeposit(ctx context.Context, rec *txrecord.Record, newBalance types.Amount) error
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnPurchase is called when an instrument is sold.
type OnPurchase interface {
	Plugin
	OnPurchase(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error
}

// OnRentalStarted is called when a rental begins.
type OnRentalStarted interface {
	Plugin
	OnRentalStarted(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error
}

// OnRentalExtended is called when a rental's expiry is pushed out.
type OnRentalExtended interface {
	Plugin
	OnRentalExtended(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error
}

// OnRentalReturned is called when a rental completes.
type OnRentalReturned interface {
	Plugin
	OnRentalReturned(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error
}

// OnRefundProcessed is called when the owner refunds a rental. original is
// the refunded rental record, refund the new refund record.
type OnRefundProcessed interface {
	Plugin
	OnRefundProcessed(ctx context.Context, original, refund *txrecord.Record) error
}

// OnRentalsOverdue is called after an overdue sweep flips at least one
// active rental past its expiry.
type OnRentalsOverdue interface {
	Plugin
	OnRentalsOverdue(ctx context.Context, marked []*txrecord.Record) error
}
