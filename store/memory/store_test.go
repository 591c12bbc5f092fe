package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/escrow"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/profile"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/types"
)

func newInvoice(creator types.Party, number string, created time.Time) *invoice.Invoice {
	return &invoice.Invoice{
		Entity:  types.NewEntityAt(created),
		ID:      id.NewInvoiceID(),
		Creator: creator,
		Number:  number,
		Amount:  1000,
		Asset:   "USDC",
		Status:  invoice.StatusPending,
	}
}

func TestInvoiceCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	inv := newInvoice("alice", "INV-1", now)
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	dup := newInvoice("alice", "INV-1", now)
	if err := s.CreateInvoice(ctx, dup); !errors.Is(err, settlement.ErrInvoiceExists) {
		t.Fatalf("expected ErrInvoiceExists, got %v", err)
	}
	if err := s.CreateInvoice(ctx, newInvoice("bob", "INV-1", now)); err != nil {
		t.Fatalf("same number for another creator: %v", err)
	}

	got, err := s.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	got.Status = invoice.StatusPaid
	again, _ := s.GetInvoice(ctx, inv.ID)
	if again.Status != invoice.StatusPending {
		t.Error("mutating a returned invoice changed the store")
	}

	byNum, err := s.GetInvoiceByNumber(ctx, "alice", "INV-1")
	if err != nil || byNum.ID.String() != inv.ID.String() {
		t.Fatalf("GetInvoiceByNumber: %v %v", byNum, err)
	}

	inv.Status = invoice.StatusCancelled
	if err := s.UpdateInvoice(ctx, inv); err != nil {
		t.Fatalf("UpdateInvoice: %v", err)
	}
	got, _ = s.GetInvoice(ctx, inv.ID)
	if got.Status != invoice.StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}

	if _, err := s.GetInvoice(ctx, id.NewInvoiceID()); !errors.Is(err, settlement.ErrInvoiceNotFound) {
		t.Errorf("expected ErrInvoiceNotFound, got %v", err)
	}
	if err := s.UpdateInvoice(ctx, newInvoice("carol", "X", now)); !errors.Is(err, settlement.ErrInvoiceNotFound) {
		t.Errorf("expected ErrInvoiceNotFound on update, got %v", err)
	}
}

func TestListInvoices(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Now()

	for i, c := range []types.Party{"alice", "bob", "alice", "alice"} {
		inv := newInvoice(c, string(rune('A'+i)), base.Add(time.Duration(i)*time.Second))
		if i == 3 {
			inv.Status = invoice.StatusPaid
		}
		if err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts invoice.ListOpts
		want []string
	}{
		{"all", invoice.ListOpts{}, []string{"A", "B", "C", "D"}},
		{"by creator", invoice.ListOpts{Creator: "alice"}, []string{"A", "C", "D"}},
		{"by status", invoice.ListOpts{Creator: "alice", Status: invoice.StatusPending}, []string{"A", "C"}},
		{"paged", invoice.ListOpts{Limit: 2, Offset: 1}, []string{"B", "C"}},
		{"offset past end", invoice.ListOpts{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListInvoices(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d invoices, want %d", len(got), len(tt.want))
			}
			for i, inv := range got {
				if inv.Number != tt.want[i] {
					t.Errorf("[%d] = %s, want %s", i, inv.Number, tt.want[i])
				}
			}
		})
	}
}

func TestUniqueKeys(t *testing.T) {
	ctx := context.Background()
	s := New()
	invID := id.NewInvoiceID()

	if err := s.CreateEscrow(ctx, escrow.For(invID, "INV-1", "USDC", 10)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateEscrow(ctx, escrow.For(invID, "INV-1", "USDC", 10)); !errors.Is(err, settlement.ErrEscrowExists) {
		t.Errorf("expected ErrEscrowExists, got %v", err)
	}

	pool := &lottery.Pool{ID: id.NewPoolID(), Asset: "USDC"}
	if err := s.CreatePool(ctx, pool); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePool(ctx, &lottery.Pool{ID: id.NewPoolID(), Asset: "USDC"}); !errors.Is(err, settlement.ErrPoolExists) {
		t.Errorf("expected ErrPoolExists, got %v", err)
	}

	entry := &lottery.Entry{ID: id.NewEntryID(), InvoiceID: invID, Participant: "bob", Status: lottery.EntryPendingSettlement}
	if err := s.CreateEntry(ctx, entry); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateEntry(ctx, &lottery.Entry{ID: id.NewEntryID(), InvoiceID: invID, Participant: "bob"}); !errors.Is(err, settlement.ErrEntryExists) {
		t.Errorf("expected ErrEntryExists, got %v", err)
	}
	if err := s.CreateEntry(ctx, &lottery.Entry{ID: id.NewEntryID(), InvoiceID: invID, Participant: "carol"}); err != nil {
		t.Errorf("second participant on same invoice: %v", err)
	}

	if err := s.CreateProfile(ctx, &profile.Profile{ID: id.NewProfileID(), Owner: "alice"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateProfile(ctx, &profile.Profile{ID: id.NewProfileID(), Owner: "alice"}); !errors.Is(err, settlement.ErrProfileExists) {
		t.Errorf("expected ErrProfileExists, got %v", err)
	}
}

func TestAtomicCommit(t *testing.T) {
	ctx := context.Background()
	s := New()
	inv := newInvoice("alice", "INV-1", time.Now())

	err := s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.CreateInvoice(ctx, inv); err != nil {
			return err
		}
		// Staged writes are visible inside the transaction only.
		if _, err := tx.GetInvoice(ctx, inv.ID); err != nil {
			t.Errorf("staged invoice not visible in tx: %v", err)
		}
		if _, err := s.GetInvoice(ctx, inv.ID); !errors.Is(err, settlement.ErrInvoiceNotFound) {
			t.Errorf("staged invoice leaked before commit: %v", err)
		}
		return tx.CreatePool(ctx, &lottery.Pool{ID: id.NewPoolID(), Asset: "USDC"})
	})
	if err != nil {
		t.Fatalf("Atomic: %v", err)
	}

	if _, err := s.GetInvoice(ctx, inv.ID); err != nil {
		t.Errorf("invoice missing after commit: %v", err)
	}
	if _, err := s.GetPool(ctx, "USDC"); err != nil {
		t.Errorf("pool missing after commit: %v", err)
	}
}

func TestAtomicRollback(t *testing.T) {
	ctx := context.Background()
	s := New()
	inv := newInvoice("alice", "INV-1", time.Now())
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		got, err := tx.GetInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		got.Status = invoice.StatusPaid
		if err := tx.UpdateInvoice(ctx, got); err != nil {
			return err
		}
		if err := tx.CreateEntry(ctx, &lottery.Entry{ID: id.NewEntryID(), InvoiceID: inv.ID, Participant: "bob"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.GetInvoice(ctx, inv.ID)
	if got.Status != invoice.StatusPending {
		t.Errorf("status = %s after rollback, want pending", got.Status)
	}
	if _, err := s.GetEntry(ctx, inv.ID, "bob"); !errors.Is(err, settlement.ErrEntryNotFound) {
		t.Errorf("entry survived rollback: %v", err)
	}
}

func TestAtomicListSeesStagedRows(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := newInvoice("alice", "A", time.Now())
	_ = s.CreateInvoice(ctx, first)

	_ = s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		second := newInvoice("alice", "B", time.Now().Add(time.Second))
		if err := tx.CreateInvoice(ctx, second); err != nil {
			return err
		}
		first.Status = invoice.StatusPaid
		if err := tx.UpdateInvoice(ctx, first); err != nil {
			return err
		}

		list, _ := tx.ListInvoices(ctx, invoice.ListOpts{Creator: "alice"})
		if len(list) != 2 {
			t.Errorf("tx list = %d rows, want 2", len(list))
		}
		paid, _ := tx.ListInvoices(ctx, invoice.ListOpts{Status: invoice.StatusPaid})
		if len(paid) != 1 || paid[0].Number != "A" {
			t.Errorf("staged update not reflected in list: %v", paid)
		}
		return nil
	})
}
