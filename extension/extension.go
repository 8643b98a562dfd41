// Package extension provides the Forge extension adapter for Rental.
//
// It implements the forge.Extension interface to integrate the rental
// engine into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.rental" or "rental" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/rental"
	"github.com/xraph/rental/store"
	"github.com/xraph/rental/store/memory"
	mongostore "github.com/xraph/rental/store/mongo"
	pgstore "github.com/xraph/rental/store/postgres"
	sqlitestore "github.com/xraph/rental/store/sqlite"
	"github.com/xraph/rental/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "rental"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Deterministic instrument rental and purchase ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the rental engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *rental.Engine
	store      store.Store
	groveDB    *grove.DB
	useGrove   bool
	engineOpts []rental.Option
}

// New creates a new Rental Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying rental engine.
// This is nil until Register is called.
func (e *Extension) Engine() *rental.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the rental engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.config.Owner == "" {
		return errors.New("rental: owner principal must be configured")
	}

	if e.store == nil && e.useGrove {
		s, err := e.buildGroveStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	e.engine = rental.New(e.store, types.Principal(e.config.Owner), opts...)

	return vessel.Provide(fapp.Container(), func() (*rental.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("rental: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("rental: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildGroveStore constructs a store backend from the supplied grove.DB.
func (e *Extension) buildGroveStore() (store.Store, error) {
	if e.groveDB == nil {
		return nil, errors.New("rental: grove store requested but no grove.DB supplied")
	}
	switch e.config.GroveBackend {
	case "postgres":
		return pgstore.New(e.groveDB), nil
	case "sqlite":
		return sqlitestore.New(e.groveDB), nil
	case "mongo":
		return mongostore.New(e.groveDB), nil
	default:
		return nil, fmt.Errorf("rental: unknown grove backend %q", e.config.GroveBackend)
	}
}

// buildEngineOpts constructs rental.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []rental.Option {
	opts := make([]rental.Option, 0, len(e.engineOpts)+2)

	if e.config.MaxRentalDays > 0 {
		opts = append(opts, rental.WithMaxRentalDays(e.config.MaxRentalDays))
	}
	if e.config.BlocksPerDay > 0 {
		opts = append(opts, rental.WithBlocksPerDay(e.config.BlocksPerDay))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("rental: configuration is required but not found in config files; " +
				"ensure 'extensions.rental' or 'rental' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("rental: configuration loaded",
		forge.F("owner", e.config.Owner),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("max_rental_days", e.config.MaxRentalDays),
		forge.F("blocks_per_day", e.config.BlocksPerDay),
		forge.F("grove_backend", e.config.GroveBackend),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.rental" first (namespaced pattern).
	if cm.IsSet("extensions.rental") {
		if err := cm.Bind("extensions.rental", &cfg); err == nil {
			e.Logger().Debug("rental: loaded config from file",
				forge.F("key", "extensions.rental"),
			)
			return cfg, true
		}
		e.Logger().Warn("rental: failed to bind extensions.rental config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "rental" key.
	if cm.IsSet("rental") {
		if err := cm.Bind("rental", &cfg); err == nil {
			e.Logger().Debug("rental: loaded config from file",
				forge.F("key", "rental"),
			)
			return cfg, true
		}
		e.Logger().Warn("rental: failed to bind rental config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.MaxRentalDays == 0 {
		cfg.MaxRentalDays = defaults.MaxRentalDays
	}
	if cfg.BlocksPerDay == 0 {
		cfg.BlocksPerDay = defaults.BlocksPerDay
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Owner == "" && programmaticConfig.Owner != "" {
		yamlConfig.Owner = programmaticConfig.Owner
	}
	if yamlConfig.GroveBackend == "" && programmaticConfig.GroveBackend != "" {
		yamlConfig.GroveBackend = programmaticConfig.GroveBackend
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.MaxRentalDays == 0 && programmaticConfig.MaxRentalDays != 0 {
		yamlConfig.MaxRentalDays = programmaticConfig.MaxRentalDays
	}
	if yamlConfig.BlocksPerDay == 0 && programmaticConfig.BlocksPerDay != 0 {
		yamlConfig.BlocksPerDay = programmaticConfig.BlocksPerDay
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
