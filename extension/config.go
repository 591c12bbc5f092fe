package extension

import (
	"time"

	"github.com/xraph/settlement"
)

// Config holds the settlement extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.settlement" or "settlement" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for settlement routes (default: "/settlement").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// LotteryCooldown is the minimum invoice age before a lottery entry is
	// accepted (default: 5m).
	LotteryCooldown time.Duration `json:"lottery_cooldown" mapstructure:"lottery_cooldown" yaml:"lottery_cooldown"`

	// DisableLotteryCooldown admits lottery entries on invoices of any age.
	// A zero LotteryCooldown means "use the default", so this is the only
	// way to turn the cooldown off.
	DisableLotteryCooldown bool `json:"disable_lottery_cooldown" mapstructure:"disable_lottery_cooldown" yaml:"disable_lottery_cooldown"`

	// JWTSecret signs and verifies API bearer tokens. Routes are not mounted
	// without it.
	JWTSecret string `json:"jwt_secret" mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:        "/settlement",
		LotteryCooldown: settlement.DefaultLotteryCooldown,
	}
}
