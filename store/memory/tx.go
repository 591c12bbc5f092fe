package memory

import (
	"context"

	"github.com/xraph/settlement/escrow"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/profile"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/types"
)

// txn is the store handed to an Atomic callback. It owns the store's writer
// slot for its whole lifetime, so the committed tables cannot change under it.
type txn struct {
	s      *Store
	staged tables
}

func (t *txn) view() view { return view{committed: &t.s.t, staged: &t.staged} }

func (t *txn) read() func() {
	t.s.mu.RLock()
	return t.s.mu.RUnlock
}

func (t *txn) commit() {
	for k, v := range t.staged.invoices {
		t.s.t.invoices[k] = v
	}
	for k, v := range t.staged.escrows {
		t.s.t.escrows[k] = v
	}
	for k, v := range t.staged.pools {
		t.s.t.pools[k] = v
	}
	for k, v := range t.staged.entries {
		t.s.t.entries[k] = v
	}
	for k, v := range t.staged.profiles {
		t.s.t.profiles[k] = v
	}
}

func (t *txn) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	defer t.read()()
	return t.view().createInvoice(inv)
}

func (t *txn) GetInvoice(_ context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	defer t.read()()
	return t.view().getInvoice(invID)
}

func (t *txn) GetInvoiceByNumber(_ context.Context, creator types.Party, number string) (*invoice.Invoice, error) {
	defer t.read()()
	return t.view().getInvoiceByNumber(creator, number)
}

func (t *txn) ListInvoices(_ context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	defer t.read()()
	return t.view().listInvoices(opts), nil
}

func (t *txn) UpdateInvoice(_ context.Context, inv *invoice.Invoice) error {
	defer t.read()()
	return t.view().updateInvoice(inv)
}

func (t *txn) CreateEscrow(_ context.Context, e *escrow.Escrow) error {
	defer t.read()()
	return t.view().createEscrow(e)
}

func (t *txn) GetEscrow(_ context.Context, invID id.InvoiceID) (*escrow.Escrow, error) {
	defer t.read()()
	return t.view().getEscrow(invID)
}

func (t *txn) CreatePool(_ context.Context, p *lottery.Pool) error {
	defer t.read()()
	return t.view().createPool(p)
}

func (t *txn) GetPool(_ context.Context, asset types.Asset) (*lottery.Pool, error) {
	defer t.read()()
	return t.view().getPool(asset)
}

func (t *txn) ListPools(_ context.Context) ([]*lottery.Pool, error) {
	defer t.read()()
	return t.view().listPools(), nil
}

func (t *txn) UpdatePool(_ context.Context, p *lottery.Pool) error {
	defer t.read()()
	return t.view().updatePool(p)
}

func (t *txn) CreateEntry(_ context.Context, e *lottery.Entry) error {
	defer t.read()()
	return t.view().createEntry(e)
}

func (t *txn) GetEntry(_ context.Context, invID id.InvoiceID, participant types.Party) (*lottery.Entry, error) {
	defer t.read()()
	return t.view().getEntry(invID, participant)
}

func (t *txn) ListEntries(_ context.Context, opts lottery.ListOpts) ([]*lottery.Entry, error) {
	defer t.read()()
	return t.view().listEntries(opts), nil
}

func (t *txn) UpdateEntry(_ context.Context, e *lottery.Entry) error {
	defer t.read()()
	return t.view().updateEntry(e)
}

func (t *txn) CreateProfile(_ context.Context, p *profile.Profile) error {
	defer t.read()()
	return t.view().createProfile(p)
}

func (t *txn) GetProfile(_ context.Context, owner types.Party) (*profile.Profile, error) {
	defer t.read()()
	return t.view().getProfile(owner)
}

func (t *txn) UpdateProfile(_ context.Context, p *profile.Profile) error {
	defer t.read()()
	return t.view().updateProfile(p)
}

// Atomic joins the enclosing transaction.
func (t *txn) Atomic(ctx context.Context, fn store.TxFunc) error {
	return fn(ctx, t)
}

func (t *txn) Migrate(_ context.Context) error { return nil }

func (t *txn) Ping(_ context.Context) error { return nil }

func (t *txn) Close() error { return nil }
