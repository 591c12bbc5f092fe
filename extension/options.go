package extension

import (
	"time"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/plugin"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/transfer"
)

// Option configures the settlement Forge extension.
type Option func(*Extension)

// WithStore sets the store for the settlement engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedger sets the value-transfer ledger funds move through.
func WithLedger(l transfer.Ledger) Option {
	return func(e *Extension) {
		e.ledger = l
	}
}

// WithEngineOption passes a settlement.Option through to the underlying engine.
func WithEngineOption(opt settlement.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a settlement plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, settlement.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for settlement routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithLotteryCooldown sets the minimum invoice age for lottery entries. A
// zero duration disables the cooldown.
func WithLotteryCooldown(d time.Duration) Option {
	return func(e *Extension) {
		e.config.LotteryCooldown = d
		e.config.DisableLotteryCooldown = d == 0
	}
}

// WithJWTSecret sets the key API bearer tokens are verified with.
func WithJWTSecret(secret string) Option {
	return func(e *Extension) { e.config.JWTSecret = secret }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
