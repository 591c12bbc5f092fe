package settlement_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/store/memory"
	"github.com/xraph/settlement/transfer"
	ledgermem "github.com/xraph/settlement/transfer/memory"
	"github.com/xraph/settlement/types"
)

// TestDocumentationExamples verifies that the examples in the package docs compile and run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Memory store and ledger for demo; use PostgreSQL and Stellar in production.
		store := memory.New()
		ledger := ledgermem.New()
		_ = ledger.Mint(transfer.Wallet("client", "USDC"), 5_000_0000000)

		engine := settlement.New(store, ledger,
			settlement.WithLogger(slog.Default()),
			settlement.WithLotteryCooldown(0),
		)

		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop()

		inv := &invoice.Invoice{
			Creator: "freelancer",
			Number:  "2025-001",
			Amount:  1_500_0000000, // 1500.0000000 USDC
			Asset:   "USDC",
			DueDate: time.Now().Add(30 * 24 * time.Hour),
			Milestones: []invoice.Milestone{
				{Description: "Design", Amount: 500_0000000},
				{Description: "Build", Amount: 1_000_0000000},
			},
		}
		if err := engine.CreateInvoice(ctx, inv); err != nil {
			t.Fatal(err)
		}

		// The client funds the escrow, then either party releases milestones.
		if _, err := engine.FundEscrow(ctx, inv.ID, "client", inv.Amount); err != nil {
			t.Fatal(err)
		}
		for range inv.Milestones {
			if _, err := engine.ReleaseMilestone(ctx, inv.ID, "client"); err != nil {
				t.Fatal(err)
			}
		}

		paid, err := engine.GetInvoice(ctx, inv.ID)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("invoice %s is %s", paid.Number, paid.Status)
	})

	t.Run("LotteryExample", func(t *testing.T) {
		ledger := ledgermem.New()
		_ = ledger.Mint(transfer.Wallet("house", "USDC"), 100_000)
		_ = ledger.Mint(transfer.Wallet("client", "USDC"), 2_000)

		engine := settlement.New(memory.New(), ledger, settlement.WithLotteryCooldown(0))
		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop()

		if _, err := engine.InitializeLotteryPool(ctx, "house", "USDC", settlement.PoolParams{
			HouseEdgeBps:      500,  // 5%
			MinPoolReserveBps: 2000, // 20% never at risk
			MaxWinPctBps:      1000, // one win pays at most 10% of the rest
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := engine.SeedLotteryPool(ctx, "USDC", "house", 100_000); err != nil {
			t.Fatal(err)
		}

		inv := &invoice.Invoice{Creator: "freelancer", Number: "L-1", Amount: 1_000, Asset: "USDC"}
		if err := engine.CreateInvoice(ctx, inv); err != nil {
			t.Fatal(err)
		}

		// A 105 premium on a 1000 invoice at 5% edge wins 10% of the time.
		entry, err := engine.PayWithLottery(ctx, inv.ID, "client", 105)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("win probability: %d bps", entry.WinProbabilityBps)

		var random [32]byte // supplied by an external randomness source
		entry, err = engine.SettleLottery(ctx, inv.ID, "client", random)
		if err != nil {
			t.Fatal(err)
		}
		if entry.Status == lottery.EntryWon {
			log.Printf("client won; invoice paid by the pool")
		}
	})

	t.Run("AmountExamples", func(t *testing.T) {
		if got := types.FormatUnits(125_000000, 7); got != "12.5000000" {
			t.Fatalf("FormatUnits = %q", got)
		}
		if _, err := types.CheckedAdd(^uint64(0), 1); err == nil {
			t.Fatal("expected overflow")
		}
	})
}
