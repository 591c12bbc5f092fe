// Package extension provides the Forge extension adapter for the settlement
// engine.
//
// It implements the forge.Extension interface to integrate settlement
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.settlement" or
// "settlement" keys.
package extension

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/api"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/store/memory"
	"github.com/xraph/settlement/transfer"
	ledgermem "github.com/xraph/settlement/transfer/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "settlement"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Invoice settlement with milestone escrow and lottery payments"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the settlement engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *settlement.Engine
	store      store.Store
	ledger     transfer.Ledger
	handler    http.Handler
	engineOpts []settlement.Option
}

// New creates a new settlement Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying settlement engine.
// This is nil until Register is called.
func (e *Extension) Engine() *settlement.Engine { return e.engine }

// Handler returns the HTTP API, or nil when routes are disabled.
func (e *Extension) Handler() http.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}
	if e.store == nil {
		e.store = memory.New()
	}
	if e.ledger == nil {
		e.ledger = ledgermem.New()
	}

	e.engine = settlement.New(e.store, e.ledger, e.buildEngineOpts()...)
	if err := vessel.Provide(fapp.Container(), func() (*settlement.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes || e.config.JWTSecret == "" {
		return nil
	}
	e.handler = e.buildRouter()
	return vessel.Provide(fapp.Container(), func() (http.Handler, error) {
		return e.handler, nil
	})
}

func (e *Extension) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	api.Register(r.Group(e.config.BasePath), api.NewHandler(e.engine, nil), e.config.JWTSecret)
	return r
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("settlement: extension not initialized")
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
		return errors.New("settlement: store not initialized")
	}
	return e.store.Ping(ctx)
}

func (e *Extension) buildEngineOpts() []settlement.Option {
	opts := make([]settlement.Option, 0, len(e.engineOpts)+1)
	switch {
	case e.config.DisableLotteryCooldown:
		opts = append(opts, settlement.WithLotteryCooldown(0))
	case e.config.LotteryCooldown > 0:
		opts = append(opts, settlement.WithLotteryCooldown(e.config.LotteryCooldown))
	}
	return append(opts, e.engineOpts...)
}

// --- Config Loading ---

func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("settlement: configuration is required but not found in config files; " +
				"ensure 'extensions.settlement' or 'settlement' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("settlement: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("lottery_cooldown", e.config.LotteryCooldown),
		forge.F("disable_lottery_cooldown", e.config.DisableLotteryCooldown),
	)
	return nil
}

func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.settlement", "settlement"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("settlement: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("settlement: loaded config from file", forge.F("key", key))
		return cfg, true
	}
	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.LotteryCooldown == 0 {
		cfg.LotteryCooldown = defaults.LotteryCooldown
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableLotteryCooldown {
		yamlConfig.DisableLotteryCooldown = true
	}
	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.JWTSecret == "" {
		yamlConfig.JWTSecret = programmaticConfig.JWTSecret
	}
	if yamlConfig.LotteryCooldown == 0 {
		yamlConfig.LotteryCooldown = programmaticConfig.LotteryCooldown
	}
	return mergeWithDefaults(yamlConfig)
}
