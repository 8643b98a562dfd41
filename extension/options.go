package extension

import (
	"github.com/xraph/grove"

	"github.com/xraph/rental"
	"github.com/xraph/rental/plugin"
	"github.com/xraph/rental/store"
)

// Option configures the Rental Forge extension.
type Option func(*Extension)

// WithStore sets the store for the rental engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a rental.Option through to the underlying engine.
func WithEngineOption(opt rental.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a rental plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, rental.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithOwner sets the administrative owner principal.
func WithOwner(owner string) Option {
	return func(e *Extension) { e.config.Owner = owner }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithMaxRentalDays caps the rental period accepted by rent and extend.
func WithMaxRentalDays(days uint64) Option {
	return func(e *Extension) { e.config.MaxRentalDays = days }
}

// WithBlocksPerDay sets the block-height to rental-day conversion factor.
func WithBlocksPerDay(blocks uint64) Option {
	return func(e *Extension) { e.config.BlocksPerDay = blocks }
}

// WithGroveDB supplies a grove.DB and selects the store backend built from
// it: "postgres", "sqlite" or "mongo". Ignored when WithStore is also given.
func WithGroveDB(db *grove.DB, backend string) Option {
	return func(e *Extension) {
		e.groveDB = db
		e.config.GroveBackend = backend
		e.useGrove = true
	}
}
