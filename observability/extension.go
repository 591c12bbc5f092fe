// Package observability provides a metrics extension for the settlement
// engine that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"errors"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceCreated      = (*MetricsExtension)(nil)
	_ plugin.OnInvoicePaid         = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceCancelled    = (*MetricsExtension)(nil)
	_ plugin.OnEscrowFunded        = (*MetricsExtension)(nil)
	_ plugin.OnMilestoneReleased   = (*MetricsExtension)(nil)
	_ plugin.OnLotteryPoolSeeded   = (*MetricsExtension)(nil)
	_ plugin.OnLotteryEntryCreated = (*MetricsExtension)(nil)
	_ plugin.OnLotteryWon          = (*MetricsExtension)(nil)
	_ plugin.OnLotteryLost         = (*MetricsExtension)(nil)
	_ plugin.OnOperationFailed     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a plugin to track settlement volume.
type MetricsExtension struct {
	factory MetricFactory

	// Invoice metrics
	InvoiceCreated   Counter
	InvoicePaid      Counter
	InvoiceCancelled Counter
	InvoiceAmount    Histogram

	// Escrow metrics
	EscrowFunded      Counter
	EscrowVolume      Counter
	MilestoneReleased Counter

	// Lottery metrics
	PoolSeeded       Counter
	PoolSeedVolume   Counter
	LotteryEntries   Counter
	LotteryPremiums  Counter
	LotteryWins      Counter
	LotteryLosses    Counter
	LotteryPayouts   Counter
	WinProbability   Histogram
	PoolBalanceAfter Histogram

	// Error metrics
	OperationErrors  Counter
	ValidationErrors Counter
	LockTimeouts     Counter
	CommitsInDoubt   Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		InvoiceCreated:   factory.Counter("settlement.invoice.created"),
		InvoicePaid:      factory.Counter("settlement.invoice.paid"),
		InvoiceCancelled: factory.Counter("settlement.invoice.cancelled"),
		InvoiceAmount:    factory.Histogram("settlement.invoice.amount"),

		EscrowFunded:      factory.Counter("settlement.escrow.funded"),
		EscrowVolume:      factory.Counter("settlement.escrow.volume"),
		MilestoneReleased: factory.Counter("settlement.escrow.milestone_released"),

		PoolSeeded:       factory.Counter("settlement.lottery.pool_seeded"),
		PoolSeedVolume:   factory.Counter("settlement.lottery.pool_seed_volume"),
		LotteryEntries:   factory.Counter("settlement.lottery.entries"),
		LotteryPremiums:  factory.Counter("settlement.lottery.premiums"),
		LotteryWins:      factory.Counter("settlement.lottery.wins"),
		LotteryLosses:    factory.Counter("settlement.lottery.losses"),
		LotteryPayouts:   factory.Counter("settlement.lottery.payouts"),
		WinProbability:   factory.Histogram("settlement.lottery.win_probability_bps"),
		PoolBalanceAfter: factory.Histogram("settlement.lottery.pool_balance"),

		OperationErrors:  factory.Counter("settlement.operation.errors"),
		ValidationErrors: factory.Counter("settlement.operation.validation_errors"),
		LockTimeouts:     factory.Counter("settlement.operation.lock_timeouts"),
		CommitsInDoubt:   factory.Counter("settlement.operation.commits_in_doubt"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (m *MetricsExtension) OnInvoiceCreated(_ context.Context, e plugin.InvoiceCreated) error {
	m.InvoiceCreated.Inc()
	m.InvoiceAmount.Observe(float64(e.Invoice.Amount))
	return nil
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (m *MetricsExtension) OnInvoicePaid(_ context.Context, _ plugin.InvoicePaid) error {
	m.InvoicePaid.Inc()
	return nil
}

// OnInvoiceCancelled implements plugin.OnInvoiceCancelled.
func (m *MetricsExtension) OnInvoiceCancelled(_ context.Context, _ plugin.InvoiceCancelled) error {
	m.InvoiceCancelled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Escrow lifecycle hooks
// ──────────────────────────────────────────────────

// OnEscrowFunded implements plugin.OnEscrowFunded.
func (m *MetricsExtension) OnEscrowFunded(_ context.Context, e plugin.EscrowFunded) error {
	m.EscrowFunded.Inc()
	m.EscrowVolume.Add(float64(e.Amount))
	return nil
}

// OnMilestoneReleased implements plugin.OnMilestoneReleased.
func (m *MetricsExtension) OnMilestoneReleased(_ context.Context, _ plugin.MilestoneReleased) error {
	m.MilestoneReleased.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Lottery lifecycle hooks
// ──────────────────────────────────────────────────

// OnLotteryPoolSeeded implements plugin.OnLotteryPoolSeeded.
func (m *MetricsExtension) OnLotteryPoolSeeded(_ context.Context, e plugin.LotteryPoolSeeded) error {
	m.PoolSeeded.Inc()
	m.PoolSeedVolume.Add(float64(e.Amount))
	return nil
}

// OnLotteryEntryCreated implements plugin.OnLotteryEntryCreated.
func (m *MetricsExtension) OnLotteryEntryCreated(_ context.Context, e plugin.LotteryEntryCreated) error {
	m.LotteryEntries.Inc()
	m.LotteryPremiums.Add(float64(e.Entry.PremiumPaid))
	m.WinProbability.Observe(float64(e.Entry.WinProbabilityBps))
	return nil
}

// OnLotteryWon implements plugin.OnLotteryWon.
func (m *MetricsExtension) OnLotteryWon(_ context.Context, e plugin.LotteryWon) error {
	m.LotteryWins.Inc()
	m.LotteryPayouts.Add(float64(e.Amount))
	m.PoolBalanceAfter.Observe(float64(e.Pool.TotalBalance))
	return nil
}

// OnLotteryLost implements plugin.OnLotteryLost.
func (m *MetricsExtension) OnLotteryLost(_ context.Context, e plugin.LotteryLost) error {
	m.LotteryLosses.Inc()
	m.PoolBalanceAfter.Observe(float64(e.Pool.TotalBalance))
	return nil
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed implements plugin.OnOperationFailed.
func (m *MetricsExtension) OnOperationFailed(_ context.Context, e plugin.OperationFailed) error {
	m.OperationErrors.Inc()
	switch {
	case settlement.IsValidation(e.Err):
		m.ValidationErrors.Inc()
	case errors.Is(e.Err, settlement.ErrLockUnavailable):
		m.LockTimeouts.Inc()
	case errors.Is(e.Err, settlement.ErrCommitInDoubt):
		m.CommitsInDoubt.Inc()
	}
	return nil
}
