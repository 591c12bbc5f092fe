package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/settlement/lock"
	"github.com/xraph/settlement/plugin"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/transfer"
)

// DefaultLotteryCooldown is the minimum invoice age before it may be paid
// through the lottery.
const DefaultLotteryCooldown = 300 * time.Second

// Engine is the invoice settlement engine.
type Engine struct {
	store   store.Store
	ledger  transfer.Ledger
	locker  lock.Locker
	plugins *plugin.Registry
	logger  *slog.Logger
	now     func() time.Time

	// Configuration
	lotteryCooldown time.Duration
}

// New creates a new Engine over a store and a value-transfer ledger.
func New(s store.Store, l transfer.Ledger, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		ledger:          l,
		locker:          lock.NewLocal(),
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		now:             time.Now,
		lotteryCooldown: DefaultLotteryCooldown,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithLocker replaces the in-process locker, e.g. with a Redis-backed one
// when several engines share a store.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLotteryCooldown sets the minimum invoice age for PayWithLottery.
func WithLotteryCooldown(d time.Duration) Option {
	return func(e *Engine) {
		e.lotteryCooldown = d
	}
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("settlement engine started",
		"plugins", e.plugins.Count(),
		"lottery_cooldown", e.lotteryCooldown,
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Atomic units
// ──────────────────────────────────────────────────

// mover applies transfers on the value-transfer ledger.
type mover func(ctx context.Context, transfers ...transfer.Transfer) error

// unitFunc is the body of an atomic unit. It must check every precondition
// and write every record before calling move, and must not fail after it.
type unitFunc func(ctx context.Context, tx store.Store, move mover) error

// atomically locks keys, runs fn in a store transaction and commits. Any
// error before commit rolls back the store writes; transfers are the last
// step, so a failed transfer leaves nothing behind.
func (e *Engine) atomically(ctx context.Context, op, resource string, keys []string, fn unitFunc) error {
	unlock, err := e.locker.Lock(ctx, keys...)
	if err != nil {
		return e.failed(ctx, op, resource, fmt.Errorf("%w: %w", ErrLockUnavailable, err))
	}
	defer unlock()

	var moved int
	move := func(ctx context.Context, transfers ...transfer.Transfer) error {
		if err := e.ledger.Transfer(ctx, transfers...); err != nil {
			return err
		}
		moved += len(transfers)
		return nil
	}

	err = e.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		moved = 0
		return fn(ctx, tx, move)
	})
	if err != nil {
		if moved > 0 {
			e.logger.Error("settlement: transfers applied but store commit failed",
				"operation", op,
				"resource", resource,
				"transfers", moved,
				"error", err,
			)
			err = fmt.Errorf("%w: %w", ErrCommitInDoubt, err)
		}
		return e.failed(ctx, op, resource, err)
	}
	return nil
}

func (e *Engine) failed(ctx context.Context, op, resource string, err error) error {
	e.logger.Debug("settlement operation failed",
		"operation", op,
		"resource", resource,
		"error", err,
	)
	e.plugins.EmitOperationFailed(ctx, plugin.OperationFailed{Operation: op, Resource: resource, Err: err})
	return err
}
