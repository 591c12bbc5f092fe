// Package plugin provides an extensible plugin system for the settlement
// engine. Plugins can hook into lifecycle and settlement events.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated is called when an invoice is created.
type OnInvoiceCreated interface {
	Plugin
	OnInvoiceCreated(ctx context.Context, e InvoiceCreated) error
}

// OnInvoicePaid is called when an invoice reaches the paid status, whichever
// path got it there.
type OnInvoicePaid interface {
	Plugin
	OnInvoicePaid(ctx context.Context, e InvoicePaid) error
}

// OnInvoiceCancelled is called when an invoice is cancelled.
type OnInvoiceCancelled interface {
	Plugin
	OnInvoiceCancelled(ctx context.Context, e InvoiceCancelled) error
}

// ──────────────────────────────────────────────────
// Escrow hooks
// ──────────────────────────────────────────────────

// OnEscrowFunded is called when an invoice's escrow is funded.
type OnEscrowFunded interface {
	Plugin
	OnEscrowFunded(ctx context.Context, e EscrowFunded) error
}

// OnMilestoneReleased is called for every released milestone.
type OnMilestoneReleased interface {
	Plugin
	OnMilestoneReleased(ctx context.Context, e MilestoneReleased) error
}

// ──────────────────────────────────────────────────
// Lottery hooks
// ──────────────────────────────────────────────────

type OnLotteryPoolCreated interface {
	Plugin
	OnLotteryPoolCreated(ctx context.Context, e LotteryPoolCreated) error
}

type OnLotteryPoolSeeded interface {
	Plugin
	OnLotteryPoolSeeded(ctx context.Context, e LotteryPoolSeeded) error
}

type OnLotteryPoolToggled interface {
	Plugin
	OnLotteryPoolToggled(ctx context.Context, e LotteryPoolToggled) error
}

type OnLotteryEntryCreated interface {
	Plugin
	OnLotteryEntryCreated(ctx context.Context, e LotteryEntryCreated) error
}

type OnLotteryWon interface {
	Plugin
	OnLotteryWon(ctx context.Context, e LotteryWon) error
}

type OnLotteryLost interface {
	Plugin
	OnLotteryLost(ctx context.Context, e LotteryLost) error
}

// ──────────────────────────────────────────────────
// Profile hooks
// ──────────────────────────────────────────────────

type OnProfileCreated interface {
	Plugin
	OnProfileCreated(ctx context.Context, e ProfileCreated) error
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed is called when a mutating engine operation fails.
type OnOperationFailed interface {
	Plugin
	OnOperationFailed(ctx context.Context, e OperationFailed) error
}
