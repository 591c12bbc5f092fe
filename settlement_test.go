package settlement_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/profile"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/store/memory"
	"github.com/xraph/settlement/transfer"
	ledgermem "github.com/xraph/settlement/transfer/memory"
	"github.com/xraph/settlement/types"
)

const asset types.Asset = "USDC"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	engine *settlement.Engine
	store  *memory.Store
	ledger *ledgermem.Ledger
	clock  *clock
}

func newHarness(t *testing.T, opts ...settlement.Option) *harness {
	t.Helper()
	h := &harness{
		store:  memory.New(),
		ledger: ledgermem.New(),
		clock:  &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	opts = append([]settlement.Option{
		settlement.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		settlement.WithClock(h.clock.Now),
	}, opts...)
	h.engine = settlement.New(h.store, h.ledger, opts...)
	if err := h.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = h.engine.Stop() })
	return h
}

func (h *harness) mint(t *testing.T, owner types.Party, amount uint64) {
	t.Helper()
	if err := h.ledger.Mint(transfer.Wallet(owner, asset), amount); err != nil {
		t.Fatalf("Mint: %v", err)
	}
}

func (h *harness) wallet(owner types.Party) uint64 {
	return h.ledger.Balance(transfer.Wallet(owner, asset))
}

func (h *harness) createInvoice(t *testing.T, number string, amount uint64, milestones ...uint64) *invoice.Invoice {
	t.Helper()
	inv := &invoice.Invoice{
		Creator: "alice",
		Number:  number,
		Amount:  amount,
		Asset:   asset,
		DueDate: h.clock.Now().Add(30 * 24 * time.Hour),
	}
	for i, m := range milestones {
		inv.Milestones = append(inv.Milestones, invoice.Milestone{Description: "phase " + string(rune('A'+i)), Amount: m})
	}
	if err := h.engine.CreateInvoice(context.Background(), inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	return inv
}

func (h *harness) invoice(t *testing.T, invID id.InvoiceID) *invoice.Invoice {
	t.Helper()
	inv, err := h.engine.GetInvoice(context.Background(), invID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	return inv
}

// ──────────────────────────────────────────────────
// Invoices
// ──────────────────────────────────────────────────

func TestCreateInvoice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	paidAt := time.Now()
	inv := &invoice.Invoice{
		Creator:          "alice",
		Client:           "mallory",
		Number:           "INV-001",
		Amount:           1_000,
		Asset:            asset,
		Status:           invoice.StatusPaid,
		PaidAt:           &paidAt,
		CurrentMilestone: 3,
		EscrowFunded:     true,
		Milestones:       []invoice.Milestone{{Description: "all", Amount: 1_000, Completed: true}},
	}
	if err := h.engine.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	got := h.invoice(t, inv.ID)
	if got.Status != invoice.StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if got.Client != "" || got.PaidAt != nil || got.CurrentMilestone != 0 || got.EscrowFunded || got.Milestones[0].Completed {
		t.Errorf("lifecycle fields not reset: %+v", got)
	}
	if !strings.HasPrefix(got.ID.String(), "inv_") {
		t.Errorf("unexpected ID %q", got.ID)
	}
	if !got.CreatedAt.Equal(h.clock.Now()) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, h.clock.Now())
	}

	dup := &invoice.Invoice{Creator: "alice", Number: "INV-001", Amount: 5, Asset: asset}
	if err := h.engine.CreateInvoice(ctx, dup); !errors.Is(err, settlement.ErrInvoiceExists) {
		t.Errorf("expected ErrInvoiceExists, got %v", err)
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tooMany := make([]invoice.Milestone, invoice.MaxMilestones+1)

	tests := []struct {
		name    string
		inv     *invoice.Invoice
		wantErr error
	}{
		{"number too long", &invoice.Invoice{Creator: "alice", Asset: asset, Number: strings.Repeat("x", 33)}, settlement.ErrInvoiceNumberTooLong},
		{"memo too long", &invoice.Invoice{Creator: "alice", Asset: asset, Number: "A", Memo: strings.Repeat("m", 257)}, settlement.ErrMemoTooLong},
		{"too many milestones", &invoice.Invoice{Creator: "alice", Asset: asset, Number: "B", Milestones: tooMany}, settlement.ErrTooManyMilestones},
		{"milestone description", &invoice.Invoice{Creator: "alice", Asset: asset, Number: "C", Milestones: []invoice.Milestone{{Description: strings.Repeat("d", 129)}}}, settlement.ErrMilestoneDescriptionTooLong},
		{"missing creator", &invoice.Invoice{Asset: asset, Number: "D"}, settlement.ErrInvalidInput},
		{"missing asset", &invoice.Invoice{Creator: "alice", Number: "E"}, settlement.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.engine.CreateInvoice(ctx, tt.inv)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !settlement.IsValidation(err) {
				t.Errorf("IsValidation(%v) = false", err)
			}
		})
	}

	// Limits are inclusive.
	ok := &invoice.Invoice{
		Creator:    "alice",
		Asset:      asset,
		Number:     strings.Repeat("x", 32),
		Memo:       strings.Repeat("m", 256),
		Milestones: make([]invoice.Milestone, invoice.MaxMilestones),
	}
	if err := h.engine.CreateInvoice(ctx, ok); err != nil {
		t.Fatalf("boundary invoice rejected: %v", err)
	}
}

func TestMarkPaid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	inv := h.createInvoice(t, "INV-1", 500)

	if _, err := h.engine.MarkPaid(ctx, inv.ID, "bob", strings.Repeat("s", 89)); !errors.Is(err, settlement.ErrReferenceTooLong) {
		t.Fatalf("expected ErrReferenceTooLong, got %v", err)
	}

	h.clock.Advance(time.Minute)
	got, err := h.engine.MarkPaid(ctx, inv.ID, "bob", strings.Repeat("s", 88))
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if got.Status != invoice.StatusPaid || got.Client != "bob" {
		t.Errorf("unexpected invoice %+v", got)
	}
	if got.PaidAt == nil || !got.PaidAt.Equal(h.clock.Now()) {
		t.Errorf("PaidAt = %v, want %v", got.PaidAt, h.clock.Now())
	}
	if len(h.ledger.Journal()) != 0 {
		t.Error("MarkPaid must not move funds")
	}

	if _, err := h.engine.MarkPaid(ctx, inv.ID, "bob", "again"); !errors.Is(err, settlement.ErrInvalidInvoiceStatus) {
		t.Errorf("expected ErrInvalidInvoiceStatus on second payment, got %v", err)
	}
}

func TestCancelInvoice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	inv := h.createInvoice(t, "INV-1", 500)

	if _, err := h.engine.CancelInvoice(ctx, inv.ID, "bob"); !errors.Is(err, settlement.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	got, err := h.engine.CancelInvoice(ctx, inv.ID, "alice")
	if err != nil {
		t.Fatalf("CancelInvoice: %v", err)
	}
	if got.Status != invoice.StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}

	// Status is checked before the caller.
	if _, err := h.engine.CancelInvoice(ctx, inv.ID, "bob"); !errors.Is(err, settlement.ErrInvalidInvoiceStatus) {
		t.Errorf("expected ErrInvalidInvoiceStatus, got %v", err)
	}
	if _, err := h.engine.MarkPaid(ctx, inv.ID, "bob", ""); !errors.Is(err, settlement.ErrInvalidInvoiceStatus) {
		t.Errorf("cancelled invoice accepted payment: %v", err)
	}
	if _, err := h.engine.CancelInvoice(ctx, id.NewInvoiceID(), "alice"); !settlement.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// Escrow
// ──────────────────────────────────────────────────

func TestEscrowMilestones(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.mint(t, "bob", 2_000)
	inv := h.createInvoice(t, "INV-1", 1_000, 300, 300, 400)

	// Underfunding fails with no transfer.
	if _, err := h.engine.FundEscrow(ctx, inv.ID, "bob", 999); !errors.Is(err, settlement.ErrInsufficientFunding) {
		t.Fatalf("expected ErrInsufficientFunding, got %v", err)
	}
	if h.wallet("bob") != 2_000 || h.invoice(t, inv.ID).Status != invoice.StatusPending {
		t.Fatal("failed funding changed state")
	}

	funded, err := h.engine.FundEscrow(ctx, inv.ID, "bob", 1_100)
	if err != nil {
		t.Fatalf("FundEscrow: %v", err)
	}
	if funded.Status != invoice.StatusEscrowFunded || !funded.EscrowFunded || funded.Client != "bob" {
		t.Errorf("unexpected invoice after funding: %+v", funded)
	}
	vault := transfer.EscrowVault(inv.ID, asset)
	if got := h.ledger.Balance(vault); got != 1_100 {
		t.Errorf("vault = %d, want 1100", got)
	}
	esc, err := h.engine.GetEscrow(ctx, inv.ID)
	if err != nil || esc.FundedAmount != 1_100 || esc.Vault != vault {
		t.Fatalf("GetEscrow = %+v, %v", esc, err)
	}

	// A second funding is rejected with no transfer.
	journal := len(h.ledger.Journal())
	if _, err := h.engine.FundEscrow(ctx, inv.ID, "bob", 1_000); !errors.Is(err, settlement.ErrInvalidInvoiceStatus) {
		t.Fatalf("expected ErrInvalidInvoiceStatus, got %v", err)
	}
	if len(h.ledger.Journal()) != journal {
		t.Fatal("rejected funding moved funds")
	}

	if _, err := h.engine.ReleaseMilestone(ctx, inv.ID, "mallory"); !errors.Is(err, settlement.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	releasers := []types.Party{"bob", "alice", "bob"}
	for i, caller := range releasers {
		got, err := h.engine.ReleaseMilestone(ctx, inv.ID, caller)
		if err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
		if got.CurrentMilestone != i+1 {
			t.Errorf("release %d: CurrentMilestone = %d", i, got.CurrentMilestone)
		}
		if !got.Milestones[i].Completed || got.Milestones[i].CompletedAt == nil {
			t.Errorf("release %d: milestone not completed", i)
		}
		last := i == len(releasers)-1
		if (got.Status == invoice.StatusPaid) != last {
			t.Errorf("release %d: status = %s", i, got.Status)
		}
		if (got.PaidAt != nil) != last {
			t.Errorf("release %d: PaidAt = %v", i, got.PaidAt)
		}
	}

	if h.wallet("alice") != 1_000 {
		t.Errorf("creator received %d, want 1000", h.wallet("alice"))
	}
	// Overfunding stays in the vault.
	if got := h.ledger.Balance(vault); got != 100 {
		t.Errorf("vault = %d, want 100", got)
	}

	if _, err := h.engine.ReleaseMilestone(ctx, inv.ID, "bob"); !errors.Is(err, settlement.ErrInvalidInvoiceStatus) {
		t.Errorf("expected ErrInvalidInvoiceStatus after final release, got %v", err)
	}
}

func TestFundEscrowRequiresMilestones(t *testing.T) {
	h := newHarness(t)
	h.mint(t, "bob", 1_000)
	inv := h.createInvoice(t, "INV-1", 1_000)

	if _, err := h.engine.FundEscrow(context.Background(), inv.ID, "bob", 1_000); !errors.Is(err, settlement.ErrNoMilestones) {
		t.Fatalf("expected ErrNoMilestones, got %v", err)
	}
	if h.wallet("bob") != 1_000 {
		t.Error("funds moved")
	}
}

func TestFundEscrowInsufficientWallet(t *testing.T) {
	h := newHarness(t)
	h.mint(t, "bob", 500)
	inv := h.createInvoice(t, "INV-1", 1_000, 1_000)

	_, err := h.engine.FundEscrow(context.Background(), inv.ID, "bob", 1_000)
	if !errors.Is(err, settlement.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	got := h.invoice(t, inv.ID)
	if got.Status != invoice.StatusPending || got.EscrowFunded || got.Client != "" {
		t.Errorf("invoice changed despite failed transfer: %+v", got)
	}
	if _, err := h.engine.GetEscrow(context.Background(), inv.ID); !errors.Is(err, settlement.ErrEscrowNotFound) {
		t.Errorf("escrow record survived rollback: %v", err)
	}
}

func TestConcurrentFundEscrow(t *testing.T) {
	h := newHarness(t)
	h.mint(t, "bob", 100_000)
	inv := h.createInvoice(t, "INV-1", 1_000, 1_000)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.engine.FundEscrow(context.Background(), inv.ID, "bob", 1_000); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("%d concurrent fundings succeeded, want 1", successes)
	}
	if got := h.wallet("bob"); got != 99_000 {
		t.Errorf("bob = %d, want 99000", got)
	}
}

// ──────────────────────────────────────────────────
// Profiles
// ──────────────────────────────────────────────────

func TestProfiles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		p       *profile.Profile
		wantErr error
	}{
		{"name too long", &profile.Profile{Owner: "x", Name: strings.Repeat("n", 65)}, settlement.ErrNameTooLong},
		{"email too long", &profile.Profile{Owner: "x", Email: strings.Repeat("e", 129)}, settlement.ErrEmailTooLong},
		{"business too long", &profile.Profile{Owner: "x", BusinessName: strings.Repeat("b", 129)}, settlement.ErrBusinessNameTooLong},
		{"missing owner", &profile.Profile{Name: "x"}, settlement.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.engine.CreateProfile(ctx, tt.p); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	p := &profile.Profile{Owner: "alice", Name: "Alice", Email: "alice@example.com", TotalReceived: 99}
	if err := h.engine.CreateProfile(ctx, p); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if err := h.engine.CreateProfile(ctx, &profile.Profile{Owner: "alice"}); !errors.Is(err, settlement.ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}

	h.mint(t, "bob", 1_000)
	inv := h.createInvoice(t, "INV-1", 1_000, 600, 400)
	h.createInvoice(t, "INV-2", 250)
	if _, err := h.engine.FundEscrow(ctx, inv.ID, "bob", 1_000); err != nil {
		t.Fatal(err)
	}
	if _, err := h.engine.ReleaseMilestone(ctx, inv.ID, "bob"); err != nil {
		t.Fatal(err)
	}

	got, err := h.engine.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalInvoices != 2 {
		t.Errorf("TotalInvoices = %d, want 2", got.TotalInvoices)
	}
	if got.TotalReceived != 600 {
		t.Errorf("TotalReceived = %d, want 600", got.TotalReceived)
	}
}

// ──────────────────────────────────────────────────
// Reserved parties
// ──────────────────────────────────────────────────

func TestProgramAuthoritiesCannotAct(t *testing.T) {
	h := newHarness(t, settlement.WithLotteryCooldown(0))
	ctx := context.Background()
	seededPool(t, h)
	h.mint(t, "bob", 1_000)

	escrowed := h.createInvoice(t, "INV-1", 1_000, 1_000)
	if _, err := h.engine.FundEscrow(ctx, escrowed.ID, "bob", 1_000); err != nil {
		t.Fatalf("FundEscrow: %v", err)
	}
	target := h.createInvoice(t, "INV-2", 5_000, 5_000)
	lotto := h.createInvoice(t, "INV-3", 1_000)

	poolAuth := transfer.PoolAuthority(asset)
	escrowAuth := transfer.EscrowAuthority(escrowed.ID)

	tests := []struct {
		name string
		call func() error
	}{
		{"fund escrow from pool vault", func() error {
			_, err := h.engine.FundEscrow(ctx, target.ID, poolAuth, 5_000)
			return err
		}},
		{"enter lottery from escrow vault", func() error {
			_, err := h.engine.PayWithLottery(ctx, lotto.ID, escrowAuth, 105)
			return err
		}},
		{"release as escrow vault", func() error {
			_, err := h.engine.ReleaseMilestone(ctx, escrowed.ID, escrowAuth)
			return err
		}},
		{"seed from pool vault", func() error {
			_, err := h.engine.SeedLotteryPool(ctx, asset, poolAuth, 10)
			return err
		}},
		{"mark paid as pool", func() error {
			_, err := h.engine.MarkPaid(ctx, lotto.ID, poolAuth, "")
			return err
		}},
		{"pool authority", func() error {
			_, err := h.engine.InitializeLotteryPool(ctx, poolAuth, "XLM", referenceParams)
			return err
		}},
		{"invoice creator", func() error {
			return h.engine.CreateInvoice(ctx, &invoice.Invoice{Creator: escrowAuth, Number: "INV-4", Amount: 1, Asset: asset})
		}},
		{"profile owner", func() error {
			return h.engine.CreateProfile(ctx, &profile.Profile{Owner: poolAuth, Name: "pool"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, settlement.ErrReservedParty) {
				t.Fatalf("expected ErrReservedParty, got %v", err)
			}
			if !settlement.IsUnauthorized(err) {
				t.Errorf("IsUnauthorized(%v) = false", err)
			}
		})
	}

	if got := h.ledger.Balance(transfer.PoolVault(asset)); got != 100_000 {
		t.Errorf("pool vault = %d, want 100000", got)
	}
	if got := h.ledger.Balance(transfer.EscrowVault(escrowed.ID, asset)); got != 1_000 {
		t.Errorf("escrow vault = %d, want 1000", got)
	}
	if got := h.invoice(t, target.ID); got.Status != invoice.StatusPending {
		t.Errorf("target invoice status = %s", got.Status)
	}
}

// ──────────────────────────────────────────────────
// Commit failures
// ──────────────────────────────────────────────────

var errCommit = errors.New("commit refused")

// commitFailingStore runs every unit of work and then refuses to commit it.
type commitFailingStore struct {
	store.Store
}

func (s commitFailingStore) Atomic(ctx context.Context, fn store.TxFunc) error {
	err := s.Store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return errCommit
	})
	if err != nil {
		return fmt.Errorf("%w: %w", settlement.ErrTransactionFailed, err)
	}
	return nil
}

func TestCommitFailureAfterTransfers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.mint(t, "bob", 10_000)
	escrowed := h.createInvoice(t, "INV-1", 1_000, 1_000)
	plain := h.createInvoice(t, "INV-2", 1_000)

	broken := settlement.New(commitFailingStore{h.store}, h.ledger,
		settlement.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		settlement.WithClock(h.clock.Now))

	_, err := broken.FundEscrow(ctx, escrowed.ID, "bob", 1_000)
	if !errors.Is(err, settlement.ErrCommitInDoubt) {
		t.Fatalf("expected ErrCommitInDoubt, got %v", err)
	}
	if settlement.IsRetryable(err) {
		t.Error("in-doubt commit reported as retryable")
	}
	if !settlement.IsFatal(err) {
		t.Error("in-doubt commit not reported as fatal")
	}
	// The ledger applied the transfer; the store did not record it.
	if got := h.wallet("bob"); got != 9_000 {
		t.Errorf("bob = %d, want 9000", got)
	}
	if got := h.invoice(t, escrowed.ID); got.Status != invoice.StatusPending {
		t.Errorf("invoice status = %s, want pending", got.Status)
	}

	// Nothing moved, so the failure is an ordinary retryable one.
	_, err = broken.MarkPaid(ctx, plain.ID, "bob", "")
	if !errors.Is(err, settlement.ErrTransactionFailed) || errors.Is(err, settlement.ErrCommitInDoubt) {
		t.Fatalf("expected plain ErrTransactionFailed, got %v", err)
	}
	if !settlement.IsRetryable(err) {
		t.Error("store-only failure not retryable")
	}
}

func TestErrorClasses(t *testing.T) {
	overflow := fmt.Errorf("credit: %w", settlement.ErrArithmeticOverflow)
	if !settlement.IsFatal(overflow) {
		t.Error("overflow not fatal")
	}
	if settlement.IsPrecondition(overflow) || settlement.IsRetryable(overflow) {
		t.Error("overflow classified as correctable")
	}
	if settlement.IsFatal(settlement.ErrTransactionFailed) {
		t.Error("transaction failure classified as fatal")
	}
}
