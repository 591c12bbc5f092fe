package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// DefaultHookTimeout bounds every hook call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onInvoiceCreated      []OnInvoiceCreated
	onInvoicePaid         []OnInvoicePaid
	onInvoiceCancelled    []OnInvoiceCancelled
	onEscrowFunded        []OnEscrowFunded
	onMilestoneReleased   []OnMilestoneReleased
	onLotteryPoolCreated  []OnLotteryPoolCreated
	onLotteryPoolSeeded   []OnLotteryPoolSeeded
	onLotteryPoolToggled  []OnLotteryPoolToggled
	onLotteryEntryCreated []OnLotteryEntryCreated
	onLotteryWon          []OnLotteryWon
	onLotteryLost         []OnLotteryLost
	onProfileCreated      []OnProfileCreated
	onOperationFailed     []OnOperationFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
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
	if v, ok := p.(OnInvoiceCreated); ok {
		r.onInvoiceCreated = append(r.onInvoiceCreated, v)
	}
	if v, ok := p.(OnInvoicePaid); ok {
		r.onInvoicePaid = append(r.onInvoicePaid, v)
	}
	if v, ok := p.(OnInvoiceCancelled); ok {
		r.onInvoiceCancelled = append(r.onInvoiceCancelled, v)
	}
	if v, ok := p.(OnEscrowFunded); ok {
		r.onEscrowFunded = append(r.onEscrowFunded, v)
	}
	if v, ok := p.(OnMilestoneReleased); ok {
		r.onMilestoneReleased = append(r.onMilestoneReleased, v)
	}
	if v, ok := p.(OnLotteryPoolCreated); ok {
		r.onLotteryPoolCreated = append(r.onLotteryPoolCreated, v)
	}
	if v, ok := p.(OnLotteryPoolSeeded); ok {
		r.onLotteryPoolSeeded = append(r.onLotteryPoolSeeded, v)
	}
	if v, ok := p.(OnLotteryPoolToggled); ok {
		r.onLotteryPoolToggled = append(r.onLotteryPoolToggled, v)
	}
	if v, ok := p.(OnLotteryEntryCreated); ok {
		r.onLotteryEntryCreated = append(r.onLotteryEntryCreated, v)
	}
	if v, ok := p.(OnLotteryWon); ok {
		r.onLotteryWon = append(r.onLotteryWon, v)
	}
	if v, ok := p.(OnLotteryLost); ok {
		r.onLotteryLost = append(r.onLotteryLost, v)
	}
	if v, ok := p.(OnProfileCreated); ok {
		r.onProfileCreated = append(r.onProfileCreated, v)
	}
	if v, ok := p.(OnOperationFailed); ok {
		r.onOperationFailed = append(r.onOperationFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name  string
	iface reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnInvoiceCreated", reflect.TypeOf((*OnInvoiceCreated)(nil)).Elem()},
	{"OnInvoicePaid", reflect.TypeOf((*OnInvoicePaid)(nil)).Elem()},
	{"OnInvoiceCancelled", reflect.TypeOf((*OnInvoiceCancelled)(nil)).Elem()},
	{"OnEscrowFunded", reflect.TypeOf((*OnEscrowFunded)(nil)).Elem()},
	{"OnMilestoneReleased", reflect.TypeOf((*OnMilestoneReleased)(nil)).Elem()},
	{"OnLotteryPoolCreated", reflect.TypeOf((*OnLotteryPoolCreated)(nil)).Elem()},
	{"OnLotteryPoolSeeded", reflect.TypeOf((*OnLotteryPoolSeeded)(nil)).Elem()},
	{"OnLotteryPoolToggled", reflect.TypeOf((*OnLotteryPoolToggled)(nil)).Elem()},
	{"OnLotteryEntryCreated", reflect.TypeOf((*OnLotteryEntryCreated)(nil)).Elem()},
	{"OnLotteryWon", reflect.TypeOf((*OnLotteryWon)(nil)).Elem()},
	{"OnLotteryLost", reflect.TypeOf((*OnLotteryLost)(nil)).Elem()},
	{"OnProfileCreated", reflect.TypeOf((*OnProfileCreated)(nil)).Elem()},
	{"OnOperationFailed", reflect.TypeOf((*OnOperationFailed)(nil)).Elem()},
}

// implementedInterfaces returns the hooks a plugin implements.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.iface) {
			interfaces = append(interfaces, h.name)
		}
	}
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

// dispatch calls hook on every plugin in hooks, logging failures.
func dispatch[H Plugin](ctx context.Context, r *Registry, hooks []H, hook string, call func(H) error) {
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

func snapshot[H any](r *Registry, hooks *[]H) []H {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *hooks
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	dispatch(ctx, r, snapshot(r, &r.onInit), "OnInit", func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	dispatch(ctx, r, snapshot(r, &r.onShutdown), "OnShutdown", func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

func (r *Registry) EmitInvoiceCreated(ctx context.Context, e InvoiceCreated) {
	dispatch(ctx, r, snapshot(r, &r.onInvoiceCreated), "OnInvoiceCreated", func(p OnInvoiceCreated) error {
		return p.OnInvoiceCreated(ctx, e)
	})
}

func (r *Registry) EmitInvoicePaid(ctx context.Context, e InvoicePaid) {
	dispatch(ctx, r, snapshot(r, &r.onInvoicePaid), "OnInvoicePaid", func(p OnInvoicePaid) error {
		return p.OnInvoicePaid(ctx, e)
	})
}

func (r *Registry) EmitInvoiceCancelled(ctx context.Context, e InvoiceCancelled) {
	dispatch(ctx, r, snapshot(r, &r.onInvoiceCancelled), "OnInvoiceCancelled", func(p OnInvoiceCancelled) error {
		return p.OnInvoiceCancelled(ctx, e)
	})
}

func (r *Registry) EmitEscrowFunded(ctx context.Context, e EscrowFunded) {
	dispatch(ctx, r, snapshot(r, &r.onEscrowFunded), "OnEscrowFunded", func(p OnEscrowFunded) error {
		return p.OnEscrowFunded(ctx, e)
	})
}

func (r *Registry) EmitMilestoneReleased(ctx context.Context, e MilestoneReleased) {
	dispatch(ctx, r, snapshot(r, &r.onMilestoneReleased), "OnMilestoneReleased", func(p OnMilestoneReleased) error {
		return p.OnMilestoneReleased(ctx, e)
	})
}

func (r *Registry) EmitLotteryPoolCreated(ctx context.Context, e LotteryPoolCreated) {
	dispatch(ctx, r, snapshot(r, &r.onLotteryPoolCreated), "OnLotteryPoolCreated", func(p OnLotteryPoolCreated) error {
		return p.OnLotteryPoolCreated(ctx, e)
	})
}

func (r *Registry) EmitLotteryPoolSeeded(ctx context.Context, e LotteryPoolSeeded) {
	dispatch(ctx, r, snapshot(r, &r.onLotteryPoolSeeded), "OnLotteryPoolSeeded", func(p OnLotteryPoolSeeded) error {
		return p.OnLotteryPoolSeeded(ctx, e)
	})
}

func (r *Registry) EmitLotteryPoolToggled(ctx context.Context, e LotteryPoolToggled) {
	dispatch(ctx, r, snapshot(r, &r.onLotteryPoolToggled), "OnLotteryPoolToggled", func(p OnLotteryPoolToggled) error {
		return p.OnLotteryPoolToggled(ctx, e)
	})
}

func (r *Registry) EmitLotteryEntryCreated(ctx context.Context, e LotteryEntryCreated) {
	dispatch(ctx, r, snapshot(r, &r.onLotteryEntryCreated), "OnLotteryEntryCreated", func(p OnLotteryEntryCreated) error {
		return p.OnLotteryEntryCreated(ctx, e)
	})
}

func (r *Registry) EmitLotteryWon(ctx context.Context, e LotteryWon) {
	dispatch(ctx, r, snapshot(r, &r.onLotteryWon), "OnLotteryWon", func(p OnLotteryWon) error {
		return p.OnLotteryWon(ctx, e)
	})
}

func (r *Registry) EmitLotteryLost(ctx context.Context, e LotteryLost) {
	dispatch(ctx, r, snapshot(r, &r.onLotteryLost), "OnLotteryLost", func(p OnLotteryLost) error {
		return p.OnLotteryLost(ctx, e)
	})
}

func (r *Registry) EmitProfileCreated(ctx context.Context, e ProfileCreated) {
	dispatch(ctx, r, snapshot(r, &r.onProfileCreated), "OnProfileCreated", func(p OnProfileCreated) error {
		return p.OnProfileCreated(ctx, e)
	})
}

func (r *Registry) EmitOperationFailed(ctx context.Context, e OperationFailed) {
	dispatch(ctx, r, snapshot(r, &r.onOperationFailed), "OnOperationFailed", func(p OnOperationFailed) error {
		return p.OnOperationFailed(ctx, e)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the settlement pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
