// Package kafka publishes rental transition events to a Kafka topic.
//
// The publisher is a plugin: register it with rental.WithPlugin and every
// successful transition is emitted as a JSON message.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/xraph/rental/instrument"
	"github.com/xraph/rental/plugin"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

// DefaultTopic is the topic used when none is configured.
const DefaultTopic = "rental_events"

// Event kind constants carried in the "kind" field of every message.
const (
	KindInstrumentRegistered    = "instrument.registered"
	KindInstrumentStatusChanged = "instrument.status_changed"
	KindDeposit                 = "balance.deposit"
	KindPurchase                = "purchase.completed"
	KindRentalStarted           = "rental.started"
	KindRentalExtended          = "rental.extended"
	KindRentalReturned          = "rental.returned"
	KindRefundProcessed         = "refund.processed"
	KindRentalsOverdue          = "rental.overdue_sweep"
)

// Event is the JSON envelope written to Kafka.
type Event struct {
	Kind         string                 `json:"kind"`
	InstrumentID uint64                 `json:"instrument_id,omitempty"`
	User         string                 `json:"user,omitempty"`
	Amount       uint64                 `json:"amount,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

// Publisher emits rental transition events to Kafka. It implements the
// plugin hook interfaces and never fails a transition: write errors are
// logged and swallowed.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// Compile-time checks that Publisher implements the hook interfaces.
var (
	_ plugin.Plugin                    = (*Publisher)(nil)
	_ plugin.OnShutdown                = (*Publisher)(nil)
	_ plugin.OnInstrumentRegistered    = (*Publisher)(nil)
	_ plugin.OnInstrumentStatusChanged = (*Publisher)(nil)
	_ plugin.OnDeposit                 = (*Publisher)(nil)
	_ plugin.OnPurchase                = (*Publisher)(nil)
	_ plugin.OnRentalStarted           = (*Publisher)(nil)
	_ plugin.OnRentalExtended          = (*Publisher)(nil)
	_ plugin.OnRentalReturned          = (*Publisher)(nil)
	_ plugin.OnRefundProcessed         = (*Publisher)(nil)
	_ plugin.OnRentalsOverdue          = (*Publisher)(nil)
)

// Option configures the Publisher.
type Option func(*Publisher)

// WithTopic overrides the destination topic.
func WithTopic(topic string) Option {
	return func(p *Publisher) { p.writer.Topic = topic }
}

// WithLogger sets the logger used for write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher creates a Kafka publisher targeting the given brokers.
func NewPublisher(brokers []string, opts ...Option) *Publisher {
	p := &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    DefaultTopic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements [plugin.Plugin].
func (p *Publisher) Name() string { return "kafka-publisher" }

// OnShutdown flushes and closes the writer.
func (p *Publisher) OnShutdown(_ context.Context) error {
	return p.writer.Close()
}

func (p *Publisher) OnInstrumentRegistered(ctx context.Context, inst *instrument.Instrument) error {
	p.publish(ctx, Event{
		Kind:         KindInstrumentRegistered,
		InstrumentID: inst.ID,
		Data: map[string]interface{}{
			"name":     inst.Name,
			"category": inst.Category,
		},
	})
	return nil
}

func (p *Publisher) OnInstrumentStatusChanged(ctx context.Context, inst *instrument.Instrument, prev instrument.Status) error {
	p.publish(ctx, Event{
		Kind:         KindInstrumentStatusChanged,
		InstrumentID: inst.ID,
		Data: map[string]interface{}{
			"status":          string(inst.Status),
			"previous_status": string(prev),
		},
	})
	return nil
}

func (p *Publisher) OnDeposit(ctx context.Context, rec *txrecord.Record, newBalance types.Amount) error {
	p.publish(ctx, Event{
		Kind:   KindDeposit,
		User:   string(rec.User),
		Amount: uint64(rec.Amount),
		Data: map[string]interface{}{
			"transaction_id": rec.ID,
			"new_balance":    uint64(newBalance),
		},
	})
	return nil
}

func (p *Publisher) OnPurchase(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error {
	p.publish(ctx, Event{
		Kind:         KindPurchase,
		InstrumentID: inst.ID,
		User:         string(rec.User),
		Amount:       uint64(rec.Amount),
		Data: map[string]interface{}{
			"transaction_id": rec.ID,
		},
	})
	return nil
}

func (p *Publisher) OnRentalStarted(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error {
	p.publish(ctx, p.rentalEvent(KindRentalStarted, rec, inst))
	return nil
}

func (p *Publisher) OnRentalExtended(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error {
	p.publish(ctx, p.rentalEvent(KindRentalExtended, rec, inst))
	return nil
}

func (p *Publisher) OnRentalReturned(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) error {
	p.publish(ctx, p.rentalEvent(KindRentalReturned, rec, inst))
	return nil
}

func (p *Publisher) OnRefundProcessed(ctx context.Context, original, refund *txrecord.Record) error {
	p.publish(ctx, Event{
		Kind:         KindRefundProcessed,
		InstrumentID: original.InstrumentID,
		User:         string(original.User),
		Amount:       uint64(refund.Amount),
		Data: map[string]interface{}{
			"original_transaction_id": original.ID,
			"refund_transaction_id":   refund.ID,
		},
	})
	return nil
}

func (p *Publisher) OnRentalsOverdue(ctx context.Context, marked []*txrecord.Record) error {
	ids := make([]uint64, len(marked))
	for i, rec := range marked {
		ids[i] = rec.ID
	}
	p.publish(ctx, Event{
		Kind: KindRentalsOverdue,
		Data: map[string]interface{}{
			"transaction_ids": ids,
			"count":           len(ids),
		},
	})
	return nil
}

func (p *Publisher) rentalEvent(kind string, rec *txrecord.Record, inst *instrument.Instrument) Event {
	ev := Event{
		Kind:         kind,
		InstrumentID: inst.ID,
		User:         string(rec.User),
		Amount:       uint64(rec.Amount),
		Data: map[string]interface{}{
			"transaction_id": rec.ID,
		},
	}
	if rec.Expiry != nil {
		ev.Data["expiry"] = uint64(*rec.Expiry)
	}
	if rec.RentalPeriodDays != nil {
		ev.Data["rental_period_days"] = *rec.RentalPeriodDays
	}
	return ev
}

func (p *Publisher) publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("kafka publisher: marshal event failed",
			slog.String("kind", ev.Kind),
			slog.String("error", err.Error()),
		)
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%s/%d", ev.Kind, ev.InstrumentID)),
		Value: data,
	})
	if err != nil {
		p.logger.Warn("kafka publisher: write failed",
			slog.String("kind", ev.Kind),
			slog.String("error", err.Error()),
		)
	}
}
