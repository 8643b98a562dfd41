package extension

// Config holds the Rental extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.rental" or "rental" keys).
type Config struct {
	// Owner is the principal allowed to perform administrative transitions
	// (registering instruments, toggling maintenance, sweeping overdue
	// rentals). Required unless a fully built engine store is supplied.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// MaxRentalDays caps the rental period accepted by rent and extend
	// (default: 30).
	MaxRentalDays uint64 `json:"max_rental_days" mapstructure:"max_rental_days" yaml:"max_rental_days"`

	// BlocksPerDay converts rental days into block heights (default: 144).
	BlocksPerDay uint64 `json:"blocks_per_day" mapstructure:"blocks_per_day" yaml:"blocks_per_day"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// GroveBackend selects the store backend built from a grove.DB supplied
	// via WithGroveDB: "postgres", "sqlite" or "mongo".
	GroveBackend string `json:"grove_backend" mapstructure:"grove_backend" yaml:"grove_backend"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRentalDays: 30,
		BlocksPerDay:  144,
	}
}
