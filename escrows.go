package settlement

import (
	"context"

	"github.com/xraph/settlement/escrow"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lock"
	"github.com/xraph/settlement/plugin"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/transfer"
	"github.com/xraph/settlement/types"
)

// ──────────────────────────────────────────────────
// Escrow Management
// ──────────────────────────────────────────────────

// FundEscrow moves amount from the client into the invoice's escrow vault.
// Funding above the invoice amount stays in the vault.
func (e *Engine) FundEscrow(ctx context.Context, invID id.InvoiceID, client types.Party, amount uint64) (*invoice.Invoice, error) {
	if err := checkParty("client", client); err != nil {
		return nil, e.failed(ctx, "fund_escrow", invID.String(), err)
	}

	var (
		inv *invoice.Invoice
		esc *escrow.Escrow
	)
	err := e.atomically(ctx, "fund_escrow", invID.String(), []string{lock.InvoiceKey(invID)},
		func(ctx context.Context, tx store.Store, move mover) error {
			var err error
			inv, err = tx.GetInvoice(ctx, invID)
			if err != nil {
				return err
			}
			if inv.Status != invoice.StatusPending {
				return ErrInvalidInvoiceStatus
			}
			if amount < inv.Amount {
				return ErrInsufficientFunding
			}
			if !inv.HasMilestones() {
				return ErrNoMilestones
			}

			now := e.now()
			esc = escrow.For(inv.ID, inv.Number, inv.Asset, amount)
			esc.Entity = types.NewEntityAt(now)
			if err := tx.CreateEscrow(ctx, esc); err != nil {
				return err
			}

			if err := setStatus(inv, invoice.StatusEscrowFunded, now); err != nil {
				return err
			}
			inv.Client = client
			inv.EscrowFunded = true
			if err := tx.UpdateInvoice(ctx, inv); err != nil {
				return err
			}

			return move(ctx, transfer.Transfer{
				From:       transfer.Wallet(client, inv.Asset),
				To:         esc.Vault,
				Amount:     amount,
				Authorizer: client,
			})
		})
	if err != nil {
		return nil, err
	}

	e.logger.Info("escrow funded",
		"invoice_id", inv.ID.String(),
		"client", client,
		"amount", amount,
	)
	e.plugins.EmitEscrowFunded(ctx, plugin.EscrowFunded{
		Invoice: inv.Clone(),
		Escrow:  esc,
		Client:  client,
		Amount:  amount,
	})
	return inv, nil
}

// GetEscrow retrieves the escrow of an invoice.
func (e *Engine) GetEscrow(ctx context.Context, invID id.InvoiceID) (*escrow.Escrow, error) {
	return e.store.GetEscrow(ctx, invID)
}

// ReleaseMilestone pays the next milestone from the escrow vault to the
// creator. Either party of the invoice may release. The final release marks
// the invoice paid.
func (e *Engine) ReleaseMilestone(ctx context.Context, invID id.InvoiceID, caller types.Party) (*invoice.Invoice, error) {
	if err := checkParty("caller", caller); err != nil {
		return nil, e.failed(ctx, "release_milestone", invID.String(), err)
	}
	var (
		inv    *invoice.Invoice
		index  int
		amount uint64
	)
	err := e.atomically(ctx, "release_milestone", invID.String(), []string{lock.InvoiceKey(invID)},
		func(ctx context.Context, tx store.Store, move mover) error {
			var err error
			inv, err = tx.GetInvoice(ctx, invID)
			if err != nil {
				return err
			}
			if inv.Status != invoice.StatusEscrowFunded {
				return ErrInvalidInvoiceStatus
			}
			if !inv.EscrowFunded {
				return ErrEscrowNotFunded
			}
			m := inv.NextMilestone()
			if m == nil {
				return ErrAllMilestonesComplete
			}
			if !inv.IsParty(caller) {
				return ErrUnauthorized
			}

			esc, err := tx.GetEscrow(ctx, invID)
			if err != nil {
				return err
			}

			now := e.now()
			index, amount = inv.CurrentMilestone, m.Amount
			completedAt := now
			m.Completed = true
			m.CompletedAt = &completedAt
			inv.CurrentMilestone++
			inv.TouchAt(now)
			if inv.CurrentMilestone == len(inv.Milestones) {
				if err := setStatus(inv, invoice.StatusPaid, now); err != nil {
					return err
				}
			}
			if err := tx.UpdateInvoice(ctx, inv); err != nil {
				return err
			}
			if err := e.creditCreator(ctx, tx, inv.Creator, amount, now); err != nil {
				return err
			}

			return move(ctx, transfer.Transfer{
				From:       esc.Vault,
				To:         transfer.Wallet(inv.Creator, inv.Asset),
				Amount:     amount,
				Authorizer: esc.Authority,
			})
		})
	if err != nil {
		return nil, err
	}

	e.logger.Info("milestone released",
		"invoice_id", inv.ID.String(),
		"index", index,
		"amount", amount,
		"remaining", len(inv.Milestones)-inv.CurrentMilestone,
	)
	e.plugins.EmitMilestoneReleased(ctx, plugin.MilestoneReleased{
		Invoice: inv.Clone(),
		Index:   index,
		Amount:  amount,
	})
	if inv.Status == invoice.StatusPaid {
		e.plugins.EmitInvoicePaid(ctx, plugin.InvoicePaid{
			Invoice: inv.Clone(),
			Payer:   inv.Client,
			PaidAt:  *inv.PaidAt,
		})
	}
	return inv, nil
}
