// Package audithook bridges engine transition events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit backend. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xraph/rental/id"
	"github.com/xraph/rental/instrument"
	"github.com/xraph/rental/plugin"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                    = (*Extension)(nil)
	_ plugin.OnInstrumentRegistered    = (*Extension)(nil)
	_ plugin.OnInstrumentStatusChanged = (*Extension)(nil)
	_ plugin.OnDeposit                 = (*Extension)(nil)
	_ plugin.OnPurchase                = (*Extension)(nil)
	_ plugin.OnRentalStarted           = (*Extension)(nil)
	_ plugin.OnRentalExtended          = (*Extension)(nil)
	_ plugin.OnRentalReturned          = (*Extension)(nil)
	_ plugin.OnRefundProcessed         = (*Extension)(nil)
	_ plugin.OnRentalsOverdue          = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so this package carries no backend dependency — callers
// inject the concrete recorder at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single entry in the audit trail. The ID is a TypeID
// (aevt_...), not part of replicated ledger state.
type AuditEvent struct {
	ID         id.ID          `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges engine transition events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Instrument hooks
// ──────────────────────────────────────────────────

// OnInstrumentRegistered implements plugin.OnInstrumentRegistered.
func (e *Extension) OnInstrumentRegistered(ctx context.Context, inst *instrument.Instrument) error {
	return e.record(ctx, ActionInstrumentRegistered, SeverityInfo, OutcomeSuccess,
		ResourceInstrument, formatID(inst.ID), CategoryCatalogue, nil,
		"name", inst.Name,
		"category", inst.Category,
		"daily_rental_fee", inst.DailyRentalFee,
		"purchase_price", inst.PurchasePrice,
	)
}

// OnInstrumentStatusChanged implements plugin.OnInstrumentStatusChanged.
func (e *Extension) OnInstrumentStatusChanged(ctx context.Context, inst *instrument.Instrument, prev instrument.Status) error {
	return e.record(ctx, ActionInstrumentStatusChanged, SeverityInfo, OutcomeSuccess,
		ResourceInstrument, formatID(inst.ID), CategoryCatalogue, nil,
		"from", string(prev),
		"to", string(inst.Status),
	)
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnDeposit implements plugin.OnDeposit.
func (e *Extension) OnDeposit(ctx context.Context, rec *txrecord.Record, newBalance types.Amount) error {
	return e.record(ctx, ActionDeposit, SeverityInfo, OutcomeSuccess,
		ResourceBalance, formatID(rec.ID), CategoryFunds, nil,
		"user", string(rec.User),
		"amount", rec.Amount,
		"new_balance", newBalance,
	)
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnPurchase implements plugin.OnPurchase.
func (e *Extension) OnPurchase(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error {
	return e.record(ctx, ActionPurchase, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, formatID(rec.ID), CategoryFunds, nil,
		"user", string(rec.User),
		"instrument_id", inst.ID,
		"amount", rec.Amount,
	)
}

// OnRentalStarted implements plugin.OnRentalStarted.
func (e *Extension) OnRentalStarted(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error {
	return e.record(ctx, ActionRentalStarted, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, formatID(rec.ID), CategoryRental, nil,
		"user", string(rec.User),
		"instrument_id", inst.ID,
		"days", *rec.RentalPeriodDays,
		"expiry", *rec.Expiry,
	)
}

// OnRentalExtended implements plugin.OnRentalExtended.
func (e *Extension) OnRentalExtended(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error {
	return e.record(ctx, ActionRentalExtended, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, formatID(rec.ID), CategoryRental, nil,
		"user", string(rec.User),
		"instrument_id", inst.ID,
		"days", *rec.RentalPeriodDays,
		"expiry", *rec.Expiry,
	)
}

// OnRentalReturned implements plugin.OnRentalReturned.
func (e *Extension) OnRentalReturned(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error {
	return e.record(ctx, ActionRentalReturned, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, formatID(rec.ID), CategoryRental, nil,
		"user", string(rec.User),
		"instrument_id", inst.ID,
	)
}

// OnRefundProcessed implements plugin.OnRefundProcessed.
func (e *Extension) OnRefundProcessed(ctx context.Context, original, refund *txrecord.Record) error {
	return e.record(ctx, ActionRefundProcessed, SeverityWarning, OutcomeSuccess,
		ResourceTransaction, formatID(refund.ID), CategoryFunds, nil,
		"user", string(original.User),
		"original_tx", original.ID,
		"amount", refund.Amount,
	)
}

// OnRentalsOverdue implements plugin.OnRentalsOverdue.
func (e *Extension) OnRentalsOverdue(ctx context.Context, marked []*txrecord.Record) error {
	ids := make([]uint64, len(marked))
	for i, rec := range marked {
		ids[i] = rec.ID
	}
	return e.record(ctx, ActionRentalsOverdue, SeverityWarning, OutcomeSuccess,
		ResourceTransaction, "", CategoryRental, nil,
		"count", len(marked),
		"transaction_ids", ids,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditEventID(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

func formatID(n uint64) string { return strconv.FormatUint(n, 10) }
