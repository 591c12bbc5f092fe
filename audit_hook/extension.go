// Package audithook bridges settlement lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/settlement/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnInvoiceCreated      = (*Extension)(nil)
	_ plugin.OnInvoicePaid         = (*Extension)(nil)
	_ plugin.OnInvoiceCancelled    = (*Extension)(nil)
	_ plugin.OnEscrowFunded        = (*Extension)(nil)
	_ plugin.OnMilestoneReleased   = (*Extension)(nil)
	_ plugin.OnLotteryPoolCreated  = (*Extension)(nil)
	_ plugin.OnLotteryPoolSeeded   = (*Extension)(nil)
	_ plugin.OnLotteryPoolToggled  = (*Extension)(nil)
	_ plugin.OnLotteryEntryCreated = (*Extension)(nil)
	_ plugin.OnLotteryWon          = (*Extension)(nil)
	_ plugin.OnLotteryLost         = (*Extension)(nil)
	_ plugin.OnProfileCreated      = (*Extension)(nil)
	_ plugin.OnOperationFailed     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail entry.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges settlement lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (e *Extension) OnInvoiceCreated(ctx context.Context, ev plugin.InvoiceCreated) error {
	inv := ev.Invoice
	return e.record(ctx, ActionInvoiceCreated, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryBilling, nil,
		"creator", string(inv.Creator),
		"number", inv.Number,
		"amount", inv.Amount,
		"asset", string(inv.Asset),
		"milestones", len(inv.Milestones),
	)
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (e *Extension) OnInvoicePaid(ctx context.Context, ev plugin.InvoicePaid) error {
	return e.record(ctx, ActionInvoicePaid, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, ev.Invoice.ID.String(), CategoryPayment, nil,
		"payer", string(ev.Payer),
		"reference", ev.Reference,
		"amount", ev.Invoice.Amount,
	)
}

// OnInvoiceCancelled implements plugin.OnInvoiceCancelled.
func (e *Extension) OnInvoiceCancelled(ctx context.Context, ev plugin.InvoiceCancelled) error {
	return e.record(ctx, ActionInvoiceCancelled, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, ev.Invoice.ID.String(), CategoryBilling, nil,
		"caller", string(ev.Caller),
	)
}

// ──────────────────────────────────────────────────
// Escrow lifecycle hooks
// ──────────────────────────────────────────────────

// OnEscrowFunded implements plugin.OnEscrowFunded.
func (e *Extension) OnEscrowFunded(ctx context.Context, ev plugin.EscrowFunded) error {
	return e.record(ctx, ActionEscrowFunded, SeverityInfo, OutcomeSuccess,
		ResourceEscrow, ev.Invoice.ID.String(), CategoryPayment, nil,
		"client", string(ev.Client),
		"amount", ev.Amount,
		"vault", ev.Escrow.Vault.String(),
	)
}

// OnMilestoneReleased implements plugin.OnMilestoneReleased.
func (e *Extension) OnMilestoneReleased(ctx context.Context, ev plugin.MilestoneReleased) error {
	return e.record(ctx, ActionMilestoneReleased, SeverityInfo, OutcomeSuccess,
		ResourceEscrow, ev.Invoice.ID.String(), CategoryPayment, nil,
		"milestone", ev.Index,
		"amount", ev.Amount,
	)
}

// ──────────────────────────────────────────────────
// Lottery lifecycle hooks
// ──────────────────────────────────────────────────

// OnLotteryPoolCreated implements plugin.OnLotteryPoolCreated.
func (e *Extension) OnLotteryPoolCreated(ctx context.Context, ev plugin.LotteryPoolCreated) error {
	p := ev.Pool
	return e.record(ctx, ActionPoolCreated, SeverityInfo, OutcomeSuccess,
		ResourcePool, p.ID.String(), CategoryLottery, nil,
		"asset", string(p.Asset),
		"authority", string(p.Authority),
		"house_edge_bps", p.HouseEdgeBps,
		"min_pool_reserve_bps", p.MinPoolReserveBps,
		"max_win_pct_bps", p.MaxWinPctBps,
	)
}

// OnLotteryPoolSeeded implements plugin.OnLotteryPoolSeeded.
func (e *Extension) OnLotteryPoolSeeded(ctx context.Context, ev plugin.LotteryPoolSeeded) error {
	return e.record(ctx, ActionPoolSeeded, SeverityInfo, OutcomeSuccess,
		ResourcePool, ev.Pool.ID.String(), CategoryLottery, nil,
		"seeder", string(ev.Seeder),
		"amount", ev.Amount,
		"balance", ev.Pool.TotalBalance,
	)
}

// OnLotteryPoolToggled implements plugin.OnLotteryPoolToggled.
func (e *Extension) OnLotteryPoolToggled(ctx context.Context, ev plugin.LotteryPoolToggled) error {
	return e.record(ctx, ActionPoolToggled, SeverityWarning, OutcomeSuccess,
		ResourcePool, ev.Pool.ID.String(), CategoryLottery, nil,
		"paused", ev.Pool.Paused,
	)
}

// OnLotteryEntryCreated implements plugin.OnLotteryEntryCreated.
func (e *Extension) OnLotteryEntryCreated(ctx context.Context, ev plugin.LotteryEntryCreated) error {
	en := ev.Entry
	return e.record(ctx, ActionEntryCreated, SeverityInfo, OutcomeSuccess,
		ResourceEntry, en.ID.String(), CategoryLottery, nil,
		"invoice_id", en.InvoiceID.String(),
		"participant", string(en.Participant),
		"premium", en.PremiumPaid,
		"win_probability_bps", en.WinProbabilityBps,
	)
}

// OnLotteryWon implements plugin.OnLotteryWon.
func (e *Extension) OnLotteryWon(ctx context.Context, ev plugin.LotteryWon) error {
	return e.record(ctx, ActionLotteryWon, SeverityInfo, OutcomeSuccess,
		ResourceEntry, ev.Entry.ID.String(), CategoryLottery, nil,
		"invoice_id", ev.Invoice.ID.String(),
		"participant", string(ev.Entry.Participant),
		"payout", ev.Amount,
		"pool_balance", ev.Pool.TotalBalance,
	)
}

// OnLotteryLost implements plugin.OnLotteryLost.
func (e *Extension) OnLotteryLost(ctx context.Context, ev plugin.LotteryLost) error {
	return e.record(ctx, ActionLotteryLost, SeverityInfo, OutcomeSuccess,
		ResourceEntry, ev.Entry.ID.String(), CategoryLottery, nil,
		"invoice_id", ev.Invoice.ID.String(),
		"participant", string(ev.Entry.Participant),
	)
}

// ──────────────────────────────────────────────────
// Profile and failure hooks
// ──────────────────────────────────────────────────

// OnProfileCreated implements plugin.OnProfileCreated.
func (e *Extension) OnProfileCreated(ctx context.Context, ev plugin.ProfileCreated) error {
	return e.record(ctx, ActionProfileCreated, SeverityInfo, OutcomeSuccess,
		ResourceProfile, ev.Profile.ID.String(), CategoryAccount, nil,
		"owner", string(ev.Profile.Owner),
	)
}

// OnOperationFailed implements plugin.OnOperationFailed.
func (e *Extension) OnOperationFailed(ctx context.Context, ev plugin.OperationFailed) error {
	return e.record(ctx, ActionOperationFailed, SeverityError, OutcomeFailure,
		ev.Operation, ev.Resource, CategoryBilling, ev.Err,
		"operation", ev.Operation,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
