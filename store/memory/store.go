// Package memory is an in-process store.Store. Transactions run one at a
// time; their writes are staged over the committed tables and applied on
// commit, so a failed transaction leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/escrow"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/profile"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/types"
)

// Compile-time interface checks.
var (
	_ store.Store = (*Store)(nil)
	_ store.Store = (*txn)(nil)
)

type Store struct {
	// txMu admits one writer at a time; mu guards the committed tables.
	txMu sync.Mutex
	mu   sync.RWMutex

	t tables
}

func New() *Store {
	return &Store{t: newTables()}
}

type tables struct {
	invoices map[string]*invoice.Invoice // by invoice ID
	escrows  map[string]*escrow.Escrow   // by invoice ID
	pools    map[string]*lottery.Pool    // by asset
	entries  map[string]*lottery.Entry   // by invoice ID + participant
	profiles map[string]*profile.Profile // by owner
}

func newTables() tables {
	return tables{
		invoices: make(map[string]*invoice.Invoice),
		escrows:  make(map[string]*escrow.Escrow),
		pools:    make(map[string]*lottery.Pool),
		entries:  make(map[string]*lottery.Entry),
		profiles: make(map[string]*profile.Profile),
	}
}

func entryKey(invID id.InvoiceID, participant types.Party) string {
	return invID.String() + "|" + string(participant)
}

// ──────────────────────────────────────────────────
// Overlay
// ──────────────────────────────────────────────────

// table reads staged rows before committed ones. With no staged map, writes
// go straight to committed.
type table[V any] struct {
	committed map[string]V
	staged    map[string]V
}

func (t table[V]) get(k string) (V, bool) {
	if t.staged != nil {
		if v, ok := t.staged[k]; ok {
			return v, true
		}
	}
	v, ok := t.committed[k]
	return v, ok
}

func (t table[V]) put(k string, v V) {
	if t.staged != nil {
		t.staged[k] = v
		return
	}
	t.committed[k] = v
}

func (t table[V]) all() []V {
	out := make([]V, 0, len(t.committed)+len(t.staged))
	for k, v := range t.committed {
		if _, shadowed := t.staged[k]; shadowed {
			continue
		}
		out = append(out, v)
	}
	for _, v := range t.staged {
		out = append(out, v)
	}
	return out
}

type view struct {
	committed *tables
	staged    *tables
}

func (v view) invoices() table[*invoice.Invoice] {
	t := table[*invoice.Invoice]{committed: v.committed.invoices}
	if v.staged != nil {
		t.staged = v.staged.invoices
	}
	return t
}

func (v view) escrows() table[*escrow.Escrow] {
	t := table[*escrow.Escrow]{committed: v.committed.escrows}
	if v.staged != nil {
		t.staged = v.staged.escrows
	}
	return t
}

func (v view) pools() table[*lottery.Pool] {
	t := table[*lottery.Pool]{committed: v.committed.pools}
	if v.staged != nil {
		t.staged = v.staged.pools
	}
	return t
}

func (v view) entries() table[*lottery.Entry] {
	t := table[*lottery.Entry]{committed: v.committed.entries}
	if v.staged != nil {
		t.staged = v.staged.entries
	}
	return t
}

func (v view) profiles() table[*profile.Profile] {
	t := table[*profile.Profile]{committed: v.committed.profiles}
	if v.staged != nil {
		t.staged = v.staged.profiles
	}
	return t
}

// ──────────────────────────────────────────────────
// Invoices
// ──────────────────────────────────────────────────

func (v view) createInvoice(inv *invoice.Invoice) error {
	t := v.invoices()
	if _, exists := t.get(inv.ID.String()); exists {
		return settlement.ErrInvoiceExists
	}
	for _, other := range t.all() {
		if other.Creator == inv.Creator && other.Number == inv.Number {
			return settlement.ErrInvoiceExists
		}
	}
	t.put(inv.ID.String(), inv.Clone())
	return nil
}

func (v view) getInvoice(invID id.InvoiceID) (*invoice.Invoice, error) {
	if inv, ok := v.invoices().get(invID.String()); ok {
		return inv.Clone(), nil
	}
	return nil, settlement.ErrInvoiceNotFound
}

func (v view) getInvoiceByNumber(creator types.Party, number string) (*invoice.Invoice, error) {
	for _, inv := range v.invoices().all() {
		if inv.Creator == creator && inv.Number == number {
			return inv.Clone(), nil
		}
	}
	return nil, settlement.ErrInvoiceNotFound
}

func (v view) listInvoices(opts invoice.ListOpts) []*invoice.Invoice {
	result := make([]*invoice.Invoice, 0)
	for _, inv := range v.invoices().all() {
		if opts.Creator != "" && inv.Creator != opts.Creator {
			continue
		}
		if opts.Client != "" && inv.Client != opts.Client {
			continue
		}
		if opts.Status != "" && inv.Status != opts.Status {
			continue
		}
		result = append(result, inv.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return page(result, opts.Offset, opts.Limit)
}

func (v view) updateInvoice(inv *invoice.Invoice) error {
	t := v.invoices()
	if _, exists := t.get(inv.ID.String()); !exists {
		return settlement.ErrInvoiceNotFound
	}
	t.put(inv.ID.String(), inv.Clone())
	return nil
}

// ──────────────────────────────────────────────────
// Escrows
// ──────────────────────────────────────────────────

func (v view) createEscrow(e *escrow.Escrow) error {
	t := v.escrows()
	if _, exists := t.get(e.InvoiceID.String()); exists {
		return settlement.ErrEscrowExists
	}
	c := *e
	t.put(e.InvoiceID.String(), &c)
	return nil
}

func (v view) getEscrow(invID id.InvoiceID) (*escrow.Escrow, error) {
	if e, ok := v.escrows().get(invID.String()); ok {
		c := *e
		return &c, nil
	}
	return nil, settlement.ErrEscrowNotFound
}

// ──────────────────────────────────────────────────
// Lottery pools
// ──────────────────────────────────────────────────

func (v view) createPool(p *lottery.Pool) error {
	t := v.pools()
	if _, exists := t.get(string(p.Asset)); exists {
		return settlement.ErrPoolExists
	}
	t.put(string(p.Asset), p.Clone())
	return nil
}

func (v view) getPool(asset types.Asset) (*lottery.Pool, error) {
	if p, ok := v.pools().get(string(asset)); ok {
		return p.Clone(), nil
	}
	return nil, settlement.ErrPoolNotFound
}

func (v view) listPools() []*lottery.Pool {
	result := make([]*lottery.Pool, 0)
	for _, p := range v.pools().all() {
		result = append(result, p.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Asset < result[j].Asset })
	return result
}

func (v view) updatePool(p *lottery.Pool) error {
	t := v.pools()
	if _, exists := t.get(string(p.Asset)); !exists {
		return settlement.ErrPoolNotFound
	}
	t.put(string(p.Asset), p.Clone())
	return nil
}

// ──────────────────────────────────────────────────
// Lottery entries
// ──────────────────────────────────────────────────

func (v view) createEntry(e *lottery.Entry) error {
	t := v.entries()
	k := entryKey(e.InvoiceID, e.Participant)
	if _, exists := t.get(k); exists {
		return settlement.ErrEntryExists
	}
	t.put(k, e.Clone())
	return nil
}

func (v view) getEntry(invID id.InvoiceID, participant types.Party) (*lottery.Entry, error) {
	if e, ok := v.entries().get(entryKey(invID, participant)); ok {
		return e.Clone(), nil
	}
	return nil, settlement.ErrEntryNotFound
}

func (v view) listEntries(opts lottery.ListOpts) []*lottery.Entry {
	result := make([]*lottery.Entry, 0)
	for _, e := range v.entries().all() {
		if !opts.InvoiceID.IsNil() && e.InvoiceID.String() != opts.InvoiceID.String() {
			continue
		}
		if opts.Participant != "" && e.Participant != opts.Participant {
			continue
		}
		if opts.Status != "" && e.Status != opts.Status {
			continue
		}
		result = append(result, e.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return page(result, opts.Offset, opts.Limit)
}

func (v view) updateEntry(e *lottery.Entry) error {
	t := v.entries()
	k := entryKey(e.InvoiceID, e.Participant)
	if _, exists := t.get(k); !exists {
		return settlement.ErrEntryNotFound
	}
	t.put(k, e.Clone())
	return nil
}

// ──────────────────────────────────────────────────
// Profiles
// ──────────────────────────────────────────────────

func (v view) createProfile(p *profile.Profile) error {
	t := v.profiles()
	if _, exists := t.get(string(p.Owner)); exists {
		return settlement.ErrProfileExists
	}
	c := *p
	t.put(string(p.Owner), &c)
	return nil
}

func (v view) getProfile(owner types.Party) (*profile.Profile, error) {
	if p, ok := v.profiles().get(string(owner)); ok {
		c := *p
		return &c, nil
	}
	return nil, settlement.ErrProfileNotFound
}

func (v view) updateProfile(p *profile.Profile) error {
	t := v.profiles()
	if _, exists := t.get(string(p.Owner)); !exists {
		return settlement.ErrProfileNotFound
	}
	c := *p
	t.put(string(p.Owner), &c)
	return nil
}

func page[T any](rows []T, offset, limit int) []T {
	start := offset
	if start > len(rows) {
		start = len(rows)
	}
	end := start + limit
	if limit == 0 || end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// ──────────────────────────────────────────────────
// Store
// ──────────────────────────────────────────────────

func (s *Store) committed() view { return view{committed: &s.t} }

func (s *Store) write(fn func(v view) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.committed())
}

func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	return s.write(func(v view) error { return v.createInvoice(inv) })
}

func (s *Store) GetInvoice(_ context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().getInvoice(invID)
}

func (s *Store) GetInvoiceByNumber(_ context.Context, creator types.Party, number string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().getInvoiceByNumber(creator, number)
}

func (s *Store) ListInvoices(_ context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().listInvoices(opts), nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv *invoice.Invoice) error {
	return s.write(func(v view) error { return v.updateInvoice(inv) })
}

func (s *Store) CreateEscrow(_ context.Context, e *escrow.Escrow) error {
	return s.write(func(v view) error { return v.createEscrow(e) })
}

func (s *Store) GetEscrow(_ context.Context, invID id.InvoiceID) (*escrow.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().getEscrow(invID)
}

func (s *Store) CreatePool(_ context.Context, p *lottery.Pool) error {
	return s.write(func(v view) error { return v.createPool(p) })
}

func (s *Store) GetPool(_ context.Context, asset types.Asset) (*lottery.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().getPool(asset)
}

func (s *Store) ListPools(_ context.Context) ([]*lottery.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().listPools(), nil
}

func (s *Store) UpdatePool(_ context.Context, p *lottery.Pool) error {
	return s.write(func(v view) error { return v.updatePool(p) })
}

func (s *Store) CreateEntry(_ context.Context, e *lottery.Entry) error {
	return s.write(func(v view) error { return v.createEntry(e) })
}

func (s *Store) GetEntry(_ context.Context, invID id.InvoiceID, participant types.Party) (*lottery.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().getEntry(invID, participant)
}

func (s *Store) ListEntries(_ context.Context, opts lottery.ListOpts) ([]*lottery.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().listEntries(opts), nil
}

func (s *Store) UpdateEntry(_ context.Context, e *lottery.Entry) error {
	return s.write(func(v view) error { return v.updateEntry(e) })
}

func (s *Store) CreateProfile(_ context.Context, p *profile.Profile) error {
	return s.write(func(v view) error { return v.createProfile(p) })
}

func (s *Store) GetProfile(_ context.Context, owner types.Party) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().getProfile(owner)
}

func (s *Store) UpdateProfile(_ context.Context, p *profile.Profile) error {
	return s.write(func(v view) error { return v.updateProfile(p) })
}

// Atomic runs fn against a staged view and applies its writes only when fn
// returns nil.
func (s *Store) Atomic(ctx context.Context, fn store.TxFunc) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txn{s: s, staged: newTables()}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	tx.commit()
	s.mu.Unlock()
	return nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
