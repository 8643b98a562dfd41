package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/rental/instrument"
	"github.com/xraph/rental/txrecord"
	"github.com/xraph/rental/types"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                    []OnInit
	onShutdown                []OnShutdown
	onInstrumentRegistered    []OnInstrumentRegistered
	onInstrumentStatusChanged []OnInstrumentStatusChanged
	onDeposit                 []OnDeposit
	onPurchase                []OnPurchase
	onRentalStarted           []OnRentalStarted
	onRentalExtended          []OnRentalExtended
	onRentalReturned          []OnRentalReturned
	onRefundProcessed         []OnRefundProcessed
	onRentalsOverdue          []OnRentalsOverdue
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnInstrumentRegistered); ok {
		r.onInstrumentRegistered = append(r.onInstrumentRegistered, v)
	}
	if v, ok := p.(OnInstrumentStatusChanged); ok {
		r.onInstrumentStatusChanged = append(r.onInstrumentStatusChanged, v)
	}
	if v, ok := p.(OnDeposit); ok {
		r.onDeposit = append(r.onDeposit, v)
	}
	if v, ok := p.(OnPurchase); ok {
		r.onPurchase = append(r.onPurchase, v)
	}
	if v, ok := p.(OnRentalStarted); ok {
		r.onRentalStarted = append(r.onRentalStarted, v)
	}
	if v, ok := p.(OnRentalExtended); ok {
		r.onRentalExtended = append(r.onRentalExtended, v)
	}
	if v, ok := p.(OnRentalReturned); ok {
		r.onRentalReturned = append(r.onRentalReturned, v)
	}
	if v, ok := p.(OnRefundProcessed); ok {
		r.onRefundProcessed = append(r.onRefundProcessed, v)
	}
	if v, ok := p.(OnRentalsOverdue); ok {
		r.onRentalsOverdue = append(r.onRentalsOverdue, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnInstrumentRegistered)(nil)).Elem(), "OnInstrumentRegistered")
	checkInterface(reflect.TypeOf((*OnInstrumentStatusChanged)(nil)).Elem(), "OnInstrumentStatusChanged")
	checkInterface(reflect.TypeOf((*OnDeposit)(nil)).Elem(), "OnDeposit")
	checkInterface(reflect.TypeOf((*OnPurchase)(nil)).Elem(), "OnPurchase")
	checkInterface(reflect.TypeOf((*OnRentalStarted)(nil)).Elem(), "OnRentalStarted")
	checkInterface(reflect.TypeOf((*OnRentalExtended)(nil)).Elem(), "OnRentalExtended")
	checkInterface(reflect.TypeOf((*OnRentalReturned)(nil)).Elem(), "OnRentalReturned")
	checkInterface(reflect.TypeOf((*OnRefundProcessed)(nil)).Elem(), "OnRefundProcessed")
	checkInterface(reflect.TypeOf((*OnRentalsOverdue)(nil)).Elem(), "OnRentalsOverdue")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInstrumentRegistered emits an instrument registered event.
func (r *Registry) EmitInstrumentRegistered(ctx context.Context, inst *instrument.Instrument) {
	r.mu.RLock()
	plugins := r.onInstrumentRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInstrumentRegistered(ctx, inst)
		}); err != nil {
			r.logger.Warn("plugin OnInstrumentRegistered failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInstrumentStatusChanged emits an instrument status changed event.
func (r *Registry) EmitInstrumentStatusChanged(ctx context.Context, inst *instrument.Instrument, prev instrument.Status) {
	r.mu.RLock()
	plugins := r.onInstrumentStatusChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInstrumentStatusChanged(ctx, inst, prev)
		}); err != nil {
			r.logger.Warn("plugin OnInstrumentStatusChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDeposit emits a deposit event.
func (r *Registry) EmitDeposit(ctx context.Context, rec *txrecord.Record, newBalance types.Amount) {
	r.mu.RLock()
	plugins := r.onDeposit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDeposit(ctx, rec, newBalance)
		}); err != nil {
			r.logger.Warn("plugin OnDeposit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPurchase emits a purchase event.
func (r *Registry) EmitPurchase(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) {
	r.mu.RLock()
	plugins := r.onPurchase
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPurchase(ctx, rec, inst)
		}); err != nil {
			r.logger.Warn("plugin OnPurchase failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRentalStarted emits a rental started event.
func (r *Registry) EmitRentalStarted(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) {
	r.mu.RLock()
	plugins := r.onRentalStarted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRentalStarted(ctx, rec, inst)
		}); err != nil {
			r.logger.Warn("plugin OnRentalStarted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRentalExtended emits a rental extended event.
func (r *Registry) EmitRentalExtended(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) {
	r.mu.RLock()
	plugins := r.onRentalExtended
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRentalExtended(ctx, rec, inst)
		}); err != nil {
			r.logger.Warn("plugin OnRentalExtended failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRentalReturned emits a rental returned event.
func (r *Registry) EmitRentalReturned(ctx context.Context, rec *txrecord.Record, inst *instrument.Instrument) {
	r.mu.RLock()
	plugins := r.onRentalReturned
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRentalReturned(ctx, rec, inst)
		}); err != nil {
			r.logger.Warn("plugin OnRentalReturned failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRefundProcessed emits a refund processed event.
func (r *Registry) EmitRefundProcessed(ctx context.Context, original, refund *txrecord.Record) {
	r.mu.RLock()
	plugins := r.onRefundProcessed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRefundProcessed(ctx, original, refund)
		}); err != nil {
			r.logger.Warn("plugin OnRefundProcessed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRentalsOverdue emits an overdue sweep event.
func (r *Registry) EmitRentalsOverdue(ctx context.Context, marked []*txrecord.Record) {
	r.mu.RLock()
	plugins := r.onRentalsOverdue
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRentalsOverdue(ctx, marked)
		}); err != nil {
			r.logger.Warn("plugin OnRentalsOverdue failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the transition pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
