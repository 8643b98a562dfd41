// Package observability provides a metrics extension that records
// transition counts and amounts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/rental/instrument"
	"github.com/xraph/rental/plugin"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                    = (*MetricsExtension)(nil)
	_ plugin.OnInit                    = (*MetricsExtension)(nil)
	_ plugin.OnInstrumentRegistered    = (*MetricsExtension)(nil)
	_ plugin.OnInstrumentStatusChanged = (*MetricsExtension)(nil)
	_ plugin.OnDeposit                 = (*MetricsExtension)(nil)
	_ plugin.OnPurchase                = (*MetricsExtension)(nil)
	_ plugin.OnRentalStarted           = (*MetricsExtension)(nil)
	_ plugin.OnRentalExtended          = (*MetricsExtension)(nil)
	_ plugin.OnRentalReturned          = (*MetricsExtension)(nil)
	_ plugin.OnRefundProcessed         = (*MetricsExtension)(nil)
	_ plugin.OnRentalsOverdue          = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide transition metrics.
// Register it as an engine plugin to automatically track rental metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Instrument metrics
	InstrumentsRegistered   Counter
	InstrumentStatusChanges Counter

	// Balance metrics
	Deposits      Counter
	DepositAmount Histogram

	// Transaction metrics
	Purchases       Counter
	PurchaseAmount  Histogram
	RentalsStarted  Counter
	RentalsExtended Counter
	RentalsReturned Counter
	RentalDays      Histogram
	RentalFee       Histogram

	// Refund and overdue metrics
	RefundsProcessed Counter
	RefundAmount     Histogram
	RentalsOverdue   Counter
	OverdueSweepSize Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Instrument metrics
		InstrumentsRegistered:   factory.Counter("rental.instrument.registered"),
		InstrumentStatusChanges: factory.Counter("rental.instrument.status_changed"),

		// Balance metrics
		Deposits:      factory.Counter("rental.deposit.count"),
		DepositAmount: factory.Histogram("rental.deposit.amount"),

		// Transaction metrics
		Purchases:       factory.Counter("rental.purchase.count"),
		PurchaseAmount:  factory.Histogram("rental.purchase.amount"),
		RentalsStarted:  factory.Counter("rental.rental.started"),
		RentalsExtended: factory.Counter("rental.rental.extended"),
		RentalsReturned: factory.Counter("rental.rental.returned"),
		RentalDays:      factory.Histogram("rental.rental.days"),
		RentalFee:       factory.Histogram("rental.rental.fee"),

		// Refund and overdue metrics
		RefundsProcessed: factory.Counter("rental.refund.count"),
		RefundAmount:     factory.Histogram("rental.refund.amount"),
		RentalsOverdue:   factory.Counter("rental.rental.overdue"),
		OverdueSweepSize: factory.Histogram("rental.overdue.sweep_size"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Instrument hooks
// ──────────────────────────────────────────────────

// OnInstrumentRegistered implements plugin.OnInstrumentRegistered.
func (m *MetricsExtension) OnInstrumentRegistered(_ context.Context, _ *instrument.Instrument) error {
	m.InstrumentsRegistered.Inc()
	return nil
}

// OnInstrumentStatusChanged implements plugin.OnInstrumentStatusChanged.
func (m *MetricsExtension) OnInstrumentStatusChanged(_ context.Context, _ *instrument.Instrument, _ instrument.Status) error {
	m.InstrumentStatusChanges.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnDeposit implements plugin.OnDeposit.
func (m *MetricsExtension) OnDeposit(_ context.Context, rec *txrecord.Record, _ types.Amount) error {
	m.Deposits.Inc()
	m.DepositAmount.Observe(float64(rec.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnPurchase implements plugin.OnPurchase.
func (m *MetricsExtension) OnPurchase(_ context.Context, rec *txrecord.Record, _ *instrument.Instrument) error {
	m.Purchases.Inc()
	m.PurchaseAmount.Observe(float64(rec.Amount))
	return nil
}

// OnRentalStarted implements plugin.OnRentalStarted.
func (m *MetricsExtension) OnRentalStarted(_ context.Context, rec *txrecord.Record, _ *instrument.Instrument) error {
	m.RentalsStarted.Inc()
	m.RentalDays.Observe(float64(*rec.RentalPeriodDays))
	m.RentalFee.Observe(float64(rec.Amount))
	return nil
}

// OnRentalExtended implements plugin.OnRentalExtended.
func (m *MetricsExtension) OnRentalExtended(_ context.Context, rec *txrecord.Record, _ *instrument.Instrument) error {
	m.RentalsExtended.Inc()
	m.RentalDays.Observe(float64(*rec.RentalPeriodDays))
	return nil
}

// OnRentalReturned implements plugin.OnRentalReturned.
func (m *MetricsExtension) OnRentalReturned(_ context.Context, _ *txrecord.Record, _ *instrument.Instrument) error {
	m.RentalsReturned.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Refund and overdue hooks
// ──────────────────────────────────────────────────

// OnRefundProcessed implements plugin.OnRefundProcessed.
func (m *MetricsExtension) OnRefundProcessed(_ context.Context, _, refund *txrecord.Record) error {
	m.RefundsProcessed.Inc()
	m.RefundAmount.Observe(float64(refund.Amount))
	return nil
}

// OnRentalsOverdue implements plugin.OnRentalsOverdue.
func (m *MetricsExtension) OnRentalsOverdue(_ context.Context, marked []*txrecord.Record) error {
	m.RentalsOverdue.Add(float64(len(marked)))
	m.OverdueSweepSize.Observe(float64(len(marked)))
	return nil
}
