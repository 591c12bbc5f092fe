// Package config loads the settled daemon configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/types"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Ledger drivers.
const (
	LedgerMemory  = "memory"
	LedgerStellar = "stellar"
)

type Config struct {
	Port              string
	StoreDriver       string
	DatabaseURL       string
	RedisAddr         string
	JWTSecret         string
	LedgerDriver      string
	HorizonURL        string
	NetworkPassphrase string
	// StellarKeys maps parties to an S... seed or a G... address.
	StellarKeys     map[types.Party]string
	LotteryCooldown time.Duration
	LogLevel        slog.Level
	CORSOrigins     []string
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		StoreDriver:       getEnvOrDefault("STORE_DRIVER", StoreMemory),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		LedgerDriver:      getEnvOrDefault("LEDGER_DRIVER", LedgerMemory),
		HorizonURL:        getEnvOrDefault("HORIZON_URL", "https://horizon-testnet.stellar.org"),
		NetworkPassphrase: getEnvOrDefault("NETWORK_PASSPHRASE", "Test SDF Network ; September 2015"),
		CORSOrigins:       splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
	}

	cooldown, err := time.ParseDuration(getEnvOrDefault("LOTTERY_COOLDOWN", settlement.DefaultLotteryCooldown.String()))
	if err != nil {
		return nil, fmt.Errorf("config: LOTTERY_COOLDOWN: %w", err)
	}
	if cooldown < 0 {
		return nil, fmt.Errorf("config: LOTTERY_COOLDOWN must not be negative")
	}
	cfg.LotteryCooldown = cooldown

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnvOrDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}

	if cfg.StellarKeys, err = parseKeys(os.Getenv("STELLAR_KEYS")); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the %s store", c.StoreDriver)
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.LedgerDriver {
	case LedgerMemory, LedgerStellar:
	default:
		return fmt.Errorf("config: unknown LEDGER_DRIVER %q", c.LedgerDriver)
	}
	return nil
}

// parseKeys reads "party=key,party=key".
func parseKeys(raw string) (map[types.Party]string, error) {
	keys := make(map[types.Party]string)
	for _, pair := range splitList(raw) {
		party, key, ok := strings.Cut(pair, "=")
		if !ok || party == "" || key == "" {
			return nil, fmt.Errorf("config: STELLAR_KEYS entry %q is not party=key", pair)
		}
		keys[types.Party(strings.TrimSpace(party))] = strings.TrimSpace(key)
	}
	return keys, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
