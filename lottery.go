package settlement

import (
	"context"

	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lock"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/plugin"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/transfer"
	"github.com/xraph/settlement/types"
)

// ──────────────────────────────────────────────────
// Lottery Pools
// ──────────────────────────────────────────────────

// InitializeLotteryPool creates the pool for an asset. Its risk parameters
// cannot change afterwards.
func (e *Engine) InitializeLotteryPool(ctx context.Context, authority types.Party, asset types.Asset, params lottery.Params) (*lottery.Pool, error) {
	if err := validatePool(authority, asset, params); err != nil {
		return nil, e.failed(ctx, "initialize_lottery_pool", string(asset), err)
	}

	pool := &lottery.Pool{
		Entity:    types.NewEntityAt(e.now()),
		ID:        id.NewPoolID(),
		Authority: authority,
		Asset:     asset,
		Params:    params,
	}
	err := e.atomically(ctx, "initialize_lottery_pool", string(asset), []string{lock.PoolKey(asset)},
		func(ctx context.Context, tx store.Store, _ mover) error {
			return tx.CreatePool(ctx, pool)
		})
	if err != nil {
		return nil, err
	}

	e.logger.Info("lottery pool created",
		"pool_id", pool.ID.String(),
		"asset", asset,
		"house_edge_bps", params.HouseEdgeBps,
		"min_pool_reserve_bps", params.MinPoolReserveBps,
		"max_win_pct_bps", params.MaxWinPctBps,
	)
	e.plugins.EmitLotteryPoolCreated(ctx, plugin.LotteryPoolCreated{Pool: pool.Clone()})
	return pool, nil
}

func validatePool(authority types.Party, asset types.Asset, params lottery.Params) error {
	if err := checkParty("authority", authority); err != nil {
		return err
	}
	if asset == "" {
		return invalid("asset", ErrInvalidInput, "required")
	}
	if params.HouseEdgeBps > lottery.MaxHouseEdgeBps {
		return invalid("house_edge_bps", ErrHouseEdgeTooHigh, "at most %d", lottery.MaxHouseEdgeBps)
	}
	if params.MinPoolReserveBps > lottery.MaxPoolReserveBps {
		return invalid("min_pool_reserve_bps", ErrReserveTooHigh, "at most %d", lottery.MaxPoolReserveBps)
	}
	if params.MaxWinPctBps > lottery.MaxWinPctBps {
		return invalid("max_win_pct_bps", ErrMaxWinTooHigh, "at most %d", lottery.MaxWinPctBps)
	}
	return nil
}

// SeedLotteryPool adds liquidity to an asset's pool.
func (e *Engine) SeedLotteryPool(ctx context.Context, asset types.Asset, seeder types.Party, amount uint64) (*lottery.Pool, error) {
	if err := checkParty("seeder", seeder); err != nil {
		return nil, e.failed(ctx, "seed_lottery_pool", string(asset), err)
	}

	var pool *lottery.Pool
	err := e.atomically(ctx, "seed_lottery_pool", string(asset), []string{lock.PoolKey(asset)},
		func(ctx context.Context, tx store.Store, move mover) error {
			var err error
			pool, err = tx.GetPool(ctx, asset)
			if err != nil {
				return err
			}
			if pool.Paused {
				return ErrPoolPaused
			}
			if amount == 0 {
				return ErrInvalidAmount
			}

			pool.TotalBalance, err = types.CheckedAdd(pool.TotalBalance, amount)
			if err != nil {
				return err
			}
			pool.TouchAt(e.now())
			if err := tx.UpdatePool(ctx, pool); err != nil {
				return err
			}

			return move(ctx, transfer.Transfer{
				From:       transfer.Wallet(seeder, asset),
				To:         transfer.PoolVault(asset),
				Amount:     amount,
				Authorizer: seeder,
			})
		})
	if err != nil {
		return nil, err
	}

	e.logger.Info("lottery pool seeded",
		"asset", asset,
		"seeder", seeder,
		"amount", amount,
		"new_balance", pool.TotalBalance,
	)
	e.plugins.EmitLotteryPoolSeeded(ctx, plugin.LotteryPoolSeeded{Pool: pool.Clone(), Seeder: seeder, Amount: amount})
	return pool, nil
}

// TogglePool pauses or resumes an asset's pool. Only the pool authority may
// toggle. A paused pool admits no entries and no seeding but still settles.
func (e *Engine) TogglePool(ctx context.Context, asset types.Asset, caller types.Party) (*lottery.Pool, error) {
	var pool *lottery.Pool
	err := e.atomically(ctx, "toggle_lottery_pool", string(asset), []string{lock.PoolKey(asset)},
		func(ctx context.Context, tx store.Store, _ mover) error {
			var err error
			pool, err = tx.GetPool(ctx, asset)
			if err != nil {
				return err
			}
			if caller.IsZero() || caller != pool.Authority {
				return ErrUnauthorized
			}
			pool.Paused = !pool.Paused
			pool.TouchAt(e.now())
			return tx.UpdatePool(ctx, pool)
		})
	if err != nil {
		return nil, err
	}

	e.logger.Info("lottery pool toggled", "asset", asset, "paused", pool.Paused)
	e.plugins.EmitLotteryPoolToggled(ctx, plugin.LotteryPoolToggled{Pool: pool.Clone()})
	return pool, nil
}

// GetPool retrieves the pool of an asset.
func (e *Engine) GetPool(ctx context.Context, asset types.Asset) (*lottery.Pool, error) {
	return e.store.GetPool(ctx, asset)
}

// ListPools lists every pool.
func (e *Engine) ListPools(ctx context.Context) ([]*lottery.Pool, error) {
	return e.store.ListPools(ctx)
}

// ──────────────────────────────────────────────────
// Lottery Entries
// ──────────────────────────────────────────────────

// lotteryKeys returns the lock keys of an invoice and its asset's pool. The
// asset is read outside the lock; it never changes after creation.
func (e *Engine) lotteryKeys(ctx context.Context, invID id.InvoiceID) ([]string, error) {
	inv, err := e.store.GetInvoice(ctx, invID)
	if err != nil {
		return nil, err
	}
	return []string{lock.InvoiceKey(invID), lock.PoolKey(inv.Asset)}, nil
}

// PayWithLottery enters participant into the lottery for an invoice. The
// participant pays the invoice amount plus premium into the pool vault;
// settlement later decides whether the pool refunds them.
func (e *Engine) PayWithLottery(ctx context.Context, invID id.InvoiceID, participant types.Party, premium uint64) (*lottery.Entry, error) {
	const op = "pay_with_lottery"
	if err := checkParty("participant", participant); err != nil {
		return nil, e.failed(ctx, op, invID.String(), err)
	}
	keys, err := e.lotteryKeys(ctx, invID)
	if err != nil {
		return nil, e.failed(ctx, op, invID.String(), err)
	}

	var (
		inv   *invoice.Invoice
		entry *lottery.Entry
	)
	err = e.atomically(ctx, op, invID.String(), keys,
		func(ctx context.Context, tx store.Store, move mover) error {
			var err error
			inv, err = tx.GetInvoice(ctx, invID)
			if err != nil {
				return err
			}
			pool, err := tx.GetPool(ctx, inv.Asset)
			if err != nil {
				return err
			}
			if pool.Paused {
				return ErrPoolPaused
			}
			if inv.Status != invoice.StatusPending {
				return ErrInvalidInvoiceStatus
			}
			if premium == 0 {
				return ErrInvalidAmount
			}
			now := e.now()
			if inv.AgeAt(now) < e.lotteryCooldown {
				return ErrInvoiceTooNew
			}
			if inv.Amount > pool.MaxWin() {
				return ErrInvoiceExceedsMaxWin
			}
			if pool.Asset != inv.Asset {
				return ErrAssetMismatch
			}

			total, err := types.CheckedAdd(inv.Amount, premium)
			if err != nil {
				return err
			}

			entry = &lottery.Entry{
				Entity:            types.NewEntityAt(now),
				ID:                id.NewEntryID(),
				InvoiceID:         inv.ID,
				Participant:       participant,
				InvoiceAmount:     inv.Amount,
				PremiumPaid:       premium,
				WinProbabilityBps: lottery.WinProbability(inv.Amount, premium, pool.HouseEdgeBps),
				Status:            lottery.EntryPendingSettlement,
			}
			if err := tx.CreateEntry(ctx, entry); err != nil {
				return err
			}

			if pool.TotalBalance, err = types.CheckedAdd(pool.TotalBalance, premium); err != nil {
				return err
			}
			if pool.TotalPremiumsCollected, err = types.CheckedAdd(pool.TotalPremiumsCollected, premium); err != nil {
				return err
			}
			if pool.TotalEntries, err = types.CheckedAdd(pool.TotalEntries, 1); err != nil {
				return err
			}
			pool.TouchAt(now)
			if err := tx.UpdatePool(ctx, pool); err != nil {
				return err
			}

			return move(ctx, transfer.Transfer{
				From:       transfer.Wallet(participant, inv.Asset),
				To:         transfer.PoolVault(inv.Asset),
				Amount:     total,
				Authorizer: participant,
			})
		})
	if err != nil {
		return nil, err
	}

	e.logger.Info("lottery entry created",
		"entry_id", entry.ID.String(),
		"invoice_id", inv.ID.String(),
		"participant", participant,
		"invoice_amount", entry.InvoiceAmount,
		"premium", premium,
		"win_probability_bps", entry.WinProbabilityBps,
	)
	e.plugins.EmitLotteryEntryCreated(ctx, plugin.LotteryEntryCreated{Entry: entry.Clone(), Invoice: inv.Clone()})
	return entry, nil
}

// SettleLottery resolves a pending entry with externally supplied randomness
// and pays the invoice from the pool. On a win the pool also refunds the
// participant. The invoice is marked paid either way.
func (e *Engine) SettleLottery(ctx context.Context, invID id.InvoiceID, participant types.Party, random [32]byte) (*lottery.Entry, error) {
	const op = "settle_lottery"
	keys, err := e.lotteryKeys(ctx, invID)
	if err != nil {
		return nil, e.failed(ctx, op, invID.String(), err)
	}

	var (
		inv   *invoice.Invoice
		entry *lottery.Entry
		pool  *lottery.Pool
	)
	err = e.atomically(ctx, op, invID.String(), keys,
		func(ctx context.Context, tx store.Store, move mover) error {
			var err error
			inv, err = tx.GetInvoice(ctx, invID)
			if err != nil {
				return err
			}
			entry, err = tx.GetEntry(ctx, invID, participant)
			if err != nil {
				return err
			}
			if entry.Settled() {
				return ErrLotteryAlreadySettled
			}
			pool, err = tx.GetPool(ctx, inv.Asset)
			if err != nil {
				return err
			}

			now := e.now()
			resolvedAt := now
			entry.RandomResult = append([]byte(nil), random[:]...)
			entry.ResolvedAt = &resolvedAt
			entry.TouchAt(now)

			vault := transfer.PoolVault(inv.Asset)
			authority := transfer.PoolAuthority(inv.Asset)
			toCreator := transfer.Transfer{
				From:       vault,
				To:         transfer.Wallet(inv.Creator, inv.Asset),
				Amount:     entry.InvoiceAmount,
				Authorizer: authority,
			}
			transfers := []transfer.Transfer{toCreator}

			if lottery.Wins(random, entry.WinProbabilityBps) {
				entry.Status = lottery.EntryWon
				if pool.TotalWins, err = types.CheckedAdd(pool.TotalWins, 1); err != nil {
					return err
				}
				if pool.TotalPayouts, err = types.CheckedAdd(pool.TotalPayouts, entry.InvoiceAmount); err != nil {
					return err
				}
				pool.TotalBalance = types.SaturatingSub(pool.TotalBalance, entry.InvoiceAmount)
				transfers = []transfer.Transfer{{
					From:       vault,
					To:         transfer.Wallet(participant, inv.Asset),
					Amount:     entry.InvoiceAmount,
					Authorizer: authority,
				}, toCreator}
			} else {
				entry.Status = lottery.EntryLost
			}
			pool.TouchAt(now)

			// The entry's amount already sits in the vault, so the invoice is
			// paid even if it was cancelled, paid or escrowed after entry.
			// setStatus is bypassed because those are terminal states.
			paidAt := now
			inv.Status = invoice.StatusPaid
			inv.PaidAt = &paidAt
			inv.Client = participant
			inv.TouchAt(now)

			if err := tx.UpdateEntry(ctx, entry); err != nil {
				return err
			}
			if err := tx.UpdatePool(ctx, pool); err != nil {
				return err
			}
			if err := tx.UpdateInvoice(ctx, inv); err != nil {
				return err
			}
			if err := e.creditCreator(ctx, tx, inv.Creator, entry.InvoiceAmount, now); err != nil {
				return err
			}

			return move(ctx, transfers...)
		})
	if err != nil {
		return nil, err
	}

	e.logger.Info("lottery settled",
		"entry_id", entry.ID.String(),
		"invoice_id", inv.ID.String(),
		"participant", participant,
		"status", entry.Status,
		"draw", lottery.Draw(random),
		"win_probability_bps", entry.WinProbabilityBps,
	)
	if entry.Status == lottery.EntryWon {
		e.plugins.EmitLotteryWon(ctx, plugin.LotteryWon{
			Entry:   entry.Clone(),
			Invoice: inv.Clone(),
			Pool:    pool.Clone(),
			Amount:  entry.InvoiceAmount,
		})
	} else {
		e.plugins.EmitLotteryLost(ctx, plugin.LotteryLost{
			Entry:   entry.Clone(),
			Invoice: inv.Clone(),
			Pool:    pool.Clone(),
		})
	}
	e.plugins.EmitInvoicePaid(ctx, plugin.InvoicePaid{
		Invoice:   inv.Clone(),
		Payer:     participant,
		Reference: entry.ID.String(),
		PaidAt:    *inv.PaidAt,
	})
	return entry, nil
}

// GetEntry retrieves a participant's entry for an invoice.
func (e *Engine) GetEntry(ctx context.Context, invID id.InvoiceID, participant types.Party) (*lottery.Entry, error) {
	return e.store.GetEntry(ctx, invID, participant)
}

// ListEntries lists entries matching opts.
func (e *Engine) ListEntries(ctx context.Context, opts lottery.ListOpts) ([]*lottery.Entry, error) {
	return e.store.ListEntries(ctx, opts)
}
