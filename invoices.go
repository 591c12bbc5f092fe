package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lock"
	"github.com/xraph/settlement/plugin"
	"github.com/xraph/settlement/profile"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/types"
)

// ──────────────────────────────────────────────────
// Invoice Management
// ──────────────────────────────────────────────────

// CreateInvoice validates and stores a new pending invoice. Lifecycle fields
// supplied by the caller are reset.
func (e *Engine) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	if err := validateInvoice(inv); err != nil {
		return e.failed(ctx, "create_invoice", inv.Number, err)
	}

	now := e.now()
	if inv.ID.IsNil() {
		inv.ID = id.NewInvoiceID()
	}
	inv.Entity = types.NewEntityAt(now)
	inv.Client = ""
	inv.Status = invoice.StatusPending
	inv.PaidAt = nil
	inv.CurrentMilestone = 0
	inv.EscrowFunded = false
	for i := range inv.Milestones {
		inv.Milestones[i].Completed = false
		inv.Milestones[i].CompletedAt = nil
	}

	err := e.atomically(ctx, "create_invoice", inv.ID.String(), []string{lock.InvoiceKey(inv.ID)},
		func(ctx context.Context, tx store.Store, _ mover) error {
			if err := tx.CreateInvoice(ctx, inv); err != nil {
				return err
			}
			return e.touchProfile(ctx, tx, inv.Creator, now, func(p *profile.Profile) error {
				return p.RecordInvoice()
			})
		})
	if err != nil {
		return err
	}

	e.logger.Info("invoice created",
		"invoice_id", inv.ID.String(),
		"creator", inv.Creator,
		"number", inv.Number,
		"amount", inv.Amount,
		"asset", inv.Asset,
		"milestones", len(inv.Milestones),
	)
	e.plugins.EmitInvoiceCreated(ctx, plugin.InvoiceCreated{Invoice: inv.Clone()})
	return nil
}

func validateInvoice(inv *invoice.Invoice) error {
	if err := checkParty("creator", inv.Creator); err != nil {
		return err
	}
	if inv.Asset == "" {
		return invalid("asset", ErrInvalidInput, "required")
	}
	if len(inv.Number) > invoice.MaxNumberLength {
		return invalid("number", ErrInvoiceNumberTooLong, "at most %d characters", invoice.MaxNumberLength)
	}
	if len(inv.Memo) > invoice.MaxMemoLength {
		return invalid("memo", ErrMemoTooLong, "at most %d characters", invoice.MaxMemoLength)
	}
	if len(inv.Milestones) > invoice.MaxMilestones {
		return invalid("milestones", ErrTooManyMilestones, "at most %d milestones", invoice.MaxMilestones)
	}
	for _, m := range inv.Milestones {
		if len(m.Description) > invoice.MaxMilestoneDescription {
			return invalid("milestones.description", ErrMilestoneDescriptionTooLong,
				"at most %d characters", invoice.MaxMilestoneDescription)
		}
	}
	return nil
}

// GetInvoice retrieves an invoice by ID.
func (e *Engine) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return e.store.GetInvoice(ctx, invID)
}

// GetInvoiceByNumber retrieves an invoice by its creator-scoped number.
func (e *Engine) GetInvoiceByNumber(ctx context.Context, creator types.Party, number string) (*invoice.Invoice, error) {
	return e.store.GetInvoiceByNumber(ctx, creator, number)
}

// ListInvoices lists invoices matching opts.
func (e *Engine) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	return e.store.ListInvoices(ctx, opts)
}

// MarkPaid records a payment made outside the engine. No funds move and the
// reference is stored only in the emitted event.
func (e *Engine) MarkPaid(ctx context.Context, invID id.InvoiceID, payer types.Party, reference string) (*invoice.Invoice, error) {
	if err := checkParty("payer", payer); err != nil {
		return nil, e.failed(ctx, "mark_paid", invID.String(), err)
	}

	var inv *invoice.Invoice
	err := e.atomically(ctx, "mark_paid", invID.String(), []string{lock.InvoiceKey(invID)},
		func(ctx context.Context, tx store.Store, _ mover) error {
			var err error
			inv, err = tx.GetInvoice(ctx, invID)
			if err != nil {
				return err
			}
			if inv.Status != invoice.StatusPending {
				return ErrInvalidInvoiceStatus
			}
			if len(reference) > invoice.MaxReferenceLength {
				return invalid("reference", ErrReferenceTooLong, "at most %d characters", invoice.MaxReferenceLength)
			}

			now := e.now()
			if err := setStatus(inv, invoice.StatusPaid, now); err != nil {
				return err
			}
			inv.Client = payer
			if err := tx.UpdateInvoice(ctx, inv); err != nil {
				return err
			}
			return e.creditCreator(ctx, tx, inv.Creator, inv.Amount, now)
		})
	if err != nil {
		return nil, err
	}

	e.logger.Info("invoice marked paid",
		"invoice_id", inv.ID.String(),
		"payer", payer,
		"reference", reference,
	)
	e.plugins.EmitInvoicePaid(ctx, plugin.InvoicePaid{
		Invoice:   inv.Clone(),
		Payer:     payer,
		Reference: reference,
		PaidAt:    *inv.PaidAt,
	})
	return inv, nil
}

// CancelInvoice cancels a pending invoice. Only the creator may cancel.
func (e *Engine) CancelInvoice(ctx context.Context, invID id.InvoiceID, caller types.Party) (*invoice.Invoice, error) {
	var inv *invoice.Invoice
	err := e.atomically(ctx, "cancel_invoice", invID.String(), []string{lock.InvoiceKey(invID)},
		func(ctx context.Context, tx store.Store, _ mover) error {
			var err error
			inv, err = tx.GetInvoice(ctx, invID)
			if err != nil {
				return err
			}
			if inv.Status != invoice.StatusPending {
				return ErrInvalidInvoiceStatus
			}
			if caller.IsZero() || caller != inv.Creator {
				return ErrUnauthorized
			}
			if err := setStatus(inv, invoice.StatusCancelled, e.now()); err != nil {
				return err
			}
			return tx.UpdateInvoice(ctx, inv)
		})
	if err != nil {
		return nil, err
	}

	e.logger.Info("invoice cancelled", "invoice_id", inv.ID.String())
	e.plugins.EmitInvoiceCancelled(ctx, plugin.InvoiceCancelled{Invoice: inv.Clone(), Caller: caller})
	return inv, nil
}

// setStatus applies a transition allowed by the invoice state machine.
func setStatus(inv *invoice.Invoice, to invoice.Status, now time.Time) error {
	if !invoice.CanTransition(inv.Status, to) {
		return ErrInvalidInvoiceStatus
	}
	inv.Status = to
	if to == invoice.StatusPaid {
		paidAt := now
		inv.PaidAt = &paidAt
	}
	inv.TouchAt(now)
	return nil
}

// ──────────────────────────────────────────────────
// Profile counters
// ──────────────────────────────────────────────────

// touchProfile applies fn to the owner's profile inside tx. Parties without a
// profile are skipped.
func (e *Engine) touchProfile(ctx context.Context, tx store.Store, owner types.Party, now time.Time, fn func(p *profile.Profile) error) error {
	p, err := tx.GetProfile(ctx, owner)
	if errors.Is(err, ErrProfileNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	p.TouchAt(now)
	return tx.UpdateProfile(ctx, p)
}

func (e *Engine) creditCreator(ctx context.Context, tx store.Store, creator types.Party, amount uint64, now time.Time) error {
	return e.touchProfile(ctx, tx, creator, now, func(p *profile.Profile) error {
		return p.RecordReceipt(amount)
	})
}
