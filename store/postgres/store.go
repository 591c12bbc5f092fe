// Package postgres implements store.Store on PostgreSQL with pgx. Reads made
// inside Atomic take row locks that are held until commit.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/escrow"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/profile"
	settlementstore "github.com/xraph/settlement/store"
	"github.com/xraph/settlement/types"
)

// compile-time interface check
var _ settlementstore.Store = (*Store)(nil)

// uniqueViolation is the SQLSTATE of a unique constraint violation.
const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements store.Store using PostgreSQL via pgx.
type Store struct {
	pool  *pgxpool.Pool
	grove *grove.DB
	q     querier
	tx    pgx.Tx
}

// Option configures a Store.
type Option func(*Store)

// WithGrove runs migrations through the grove orchestrator on db, which
// records applied versions.
func WithGrove(db *grove.DB) Option {
	return func(s *Store) { s.grove = db }
}

// New creates a new PostgreSQL store over a pgx pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, q: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects a pool to dsn and returns a store over it.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("settlement/postgres: connect: %w", err)
	}
	return New(pool, opts...), nil
}

// Pool returns the underlying pgx pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if s.grove != nil {
		executor, err := migrate.NewExecutorFor(pgdriver.Unwrap(s.grove))
		if err != nil {
			return fmt.Errorf("settlement/postgres: create migration executor: %w", err)
		}
		orch := migrate.NewOrchestrator(executor, Migrations)
		if _, err := orch.Migrate(ctx); err != nil {
			return fmt.Errorf("settlement/postgres: migration failed: %w", err)
		}
		return nil
	}

	for _, step := range schema {
		if _, err := s.pool.Exec(ctx, step.up); err != nil {
			return fmt.Errorf("settlement/postgres: migration %s failed: %w", step.name, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Atomic runs fn in a read-committed transaction. A nested call joins the
// enclosing transaction.
func (s *Store) Atomic(ctx context.Context, fn settlementstore.TxFunc) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin: %w", settlement.ErrTransactionFailed, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(ctx, &Store{pool: s.pool, grove: s.grove, q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", settlement.ErrTransactionFailed, err)
	}
	return nil
}

// forUpdate locks the selected rows when running inside a transaction.
func (s *Store) forUpdate(query string) string {
	if s.tx != nil {
		return query + " FOR UPDATE"
	}
	return query
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	r, err := toInvoiceRow(inv)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx, `INSERT INTO settlement_invoices (`+invoiceColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`, r.values()...)
	if isUniqueViolation(err) {
		return settlement.ErrInvoiceExists
	}
	return err
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return s.getInvoice(ctx, s.forUpdate(`SELECT `+invoiceColumns+` FROM settlement_invoices WHERE id = $1`), invID.String())
}

func (s *Store) GetInvoiceByNumber(ctx context.Context, creator types.Party, number string) (*invoice.Invoice, error) {
	return s.getInvoice(ctx, s.forUpdate(`SELECT `+invoiceColumns+` FROM settlement_invoices WHERE creator = $1 AND number = $2`),
		string(creator), number)
}

func (s *Store) getInvoice(ctx context.Context, query string, args ...any) (*invoice.Invoice, error) {
	r := new(invoiceRow)
	if err := s.q.QueryRow(ctx, query, args...).Scan(r.fields()...); err != nil {
		if isNoRows(err) {
			return nil, settlement.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceRow(r)
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var w where
	if opts.Creator != "" {
		w.add("creator", string(opts.Creator))
	}
	if opts.Client != "" {
		w.add("client", string(opts.Client))
	}
	if opts.Status != "" {
		w.add("status", string(opts.Status))
	}
	query := `SELECT ` + invoiceColumns + ` FROM settlement_invoices` + w.String() +
		` ORDER BY created_at ASC, id ASC` + paging(opts.Limit, opts.Offset)

	rows, err := s.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*invoice.Invoice
	for rows.Next() {
		r := new(invoiceRow)
		if err := rows.Scan(r.fields()...); err != nil {
			return nil, err
		}
		inv, err := fromInvoiceRow(r)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	r, err := toInvoiceRow(inv)
	if err != nil {
		return err
	}
	tag, err := s.q.Exec(ctx, `UPDATE settlement_invoices SET
    client = $2, memo = $3, status = $4, paid_at = $5, milestones = $6,
    current_milestone = $7, escrow_funded = $8, updated_at = $9
WHERE id = $1`,
		r.ID, r.Client, r.Memo, r.Status, r.PaidAt, r.Milestones,
		r.CurrentMilestone, r.EscrowFunded, r.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return settlement.ErrInvoiceNotFound
	}
	return nil
}

// ==================== Escrow Store ====================

func (s *Store) CreateEscrow(ctx context.Context, e *escrow.Escrow) error {
	_, err := s.q.Exec(ctx, `INSERT INTO settlement_escrows (`+escrowColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`, toEscrowRow(e).values()...)
	if isUniqueViolation(err) {
		return settlement.ErrEscrowExists
	}
	return err
}

func (s *Store) GetEscrow(ctx context.Context, invID id.InvoiceID) (*escrow.Escrow, error) {
	r := new(escrowRow)
	err := s.q.QueryRow(ctx, s.forUpdate(`SELECT `+escrowColumns+` FROM settlement_escrows WHERE invoice_id = $1`),
		invID.String()).Scan(r.fields()...)
	if err != nil {
		if isNoRows(err) {
			return nil, settlement.ErrEscrowNotFound
		}
		return nil, err
	}
	return fromEscrowRow(r)
}

// ==================== Lottery Pool Store ====================

func (s *Store) CreatePool(ctx context.Context, p *lottery.Pool) error {
	_, err := s.q.Exec(ctx, `INSERT INTO settlement_lottery_pools (`+poolColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`, toPoolRow(p).values()...)
	if isUniqueViolation(err) {
		return settlement.ErrPoolExists
	}
	return err
}

func (s *Store) GetPool(ctx context.Context, asset types.Asset) (*lottery.Pool, error) {
	r := new(poolRow)
	err := s.q.QueryRow(ctx, s.forUpdate(`SELECT `+poolColumns+` FROM settlement_lottery_pools WHERE asset = $1`),
		string(asset)).Scan(r.fields()...)
	if err != nil {
		if isNoRows(err) {
			return nil, settlement.ErrPoolNotFound
		}
		return nil, err
	}
	return fromPoolRow(r)
}

func (s *Store) ListPools(ctx context.Context) ([]*lottery.Pool, error) {
	rows, err := s.q.Query(ctx, `SELECT `+poolColumns+` FROM settlement_lottery_pools ORDER BY asset ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*lottery.Pool
	for rows.Next() {
		r := new(poolRow)
		if err := rows.Scan(r.fields()...); err != nil {
			return nil, err
		}
		p, err := fromPoolRow(r)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) UpdatePool(ctx context.Context, p *lottery.Pool) error {
	r := toPoolRow(p)
	tag, err := s.q.Exec(ctx, `UPDATE settlement_lottery_pools SET
    total_balance = $2, total_premiums_collected = $3, total_payouts = $4,
    total_entries = $5, total_wins = $6, paused = $7, updated_at = $8
WHERE asset = $1`,
		r.Asset, r.TotalBalance, r.TotalPremiumsCollected, r.TotalPayouts,
		r.TotalEntries, r.TotalWins, r.Paused, r.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return settlement.ErrPoolNotFound
	}
	return nil
}

// ==================== Lottery Entry Store ====================

func (s *Store) CreateEntry(ctx context.Context, e *lottery.Entry) error {
	_, err := s.q.Exec(ctx, `INSERT INTO settlement_lottery_entries (`+entryColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`, toEntryRow(e).values()...)
	if isUniqueViolation(err) {
		return settlement.ErrEntryExists
	}
	return err
}

func (s *Store) GetEntry(ctx context.Context, invID id.InvoiceID, participant types.Party) (*lottery.Entry, error) {
	r := new(entryRow)
	err := s.q.QueryRow(ctx,
		s.forUpdate(`SELECT `+entryColumns+` FROM settlement_lottery_entries WHERE invoice_id = $1 AND participant = $2`),
		invID.String(), string(participant)).Scan(r.fields()...)
	if err != nil {
		if isNoRows(err) {
			return nil, settlement.ErrEntryNotFound
		}
		return nil, err
	}
	return fromEntryRow(r)
}

func (s *Store) ListEntries(ctx context.Context, opts lottery.ListOpts) ([]*lottery.Entry, error) {
	var w where
	if !opts.InvoiceID.IsNil() {
		w.add("invoice_id", opts.InvoiceID.String())
	}
	if opts.Participant != "" {
		w.add("participant", string(opts.Participant))
	}
	if opts.Status != "" {
		w.add("status", string(opts.Status))
	}
	query := `SELECT ` + entryColumns + ` FROM settlement_lottery_entries` + w.String() +
		` ORDER BY created_at ASC, id ASC` + paging(opts.Limit, opts.Offset)

	rows, err := s.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*lottery.Entry
	for rows.Next() {
		r := new(entryRow)
		if err := rows.Scan(r.fields()...); err != nil {
			return nil, err
		}
		e, err := fromEntryRow(r)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) UpdateEntry(ctx context.Context, e *lottery.Entry) error {
	r := toEntryRow(e)
	tag, err := s.q.Exec(ctx, `UPDATE settlement_lottery_entries SET
    status = $2, random_result = $3, resolved_at = $4, updated_at = $5
WHERE id = $1`,
		r.ID, r.Status, r.RandomResult, r.ResolvedAt, r.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return settlement.ErrEntryNotFound
	}
	return nil
}

// ==================== Profile Store ====================

func (s *Store) CreateProfile(ctx context.Context, p *profile.Profile) error {
	_, err := s.q.Exec(ctx, `INSERT INTO settlement_profiles (`+profileColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`, toProfileRow(p).values()...)
	if isUniqueViolation(err) {
		return settlement.ErrProfileExists
	}
	return err
}

func (s *Store) GetProfile(ctx context.Context, owner types.Party) (*profile.Profile, error) {
	r := new(profileRow)
	err := s.q.QueryRow(ctx, s.forUpdate(`SELECT `+profileColumns+` FROM settlement_profiles WHERE owner = $1`),
		string(owner)).Scan(r.fields()...)
	if err != nil {
		if isNoRows(err) {
			return nil, settlement.ErrProfileNotFound
		}
		return nil, err
	}
	return fromProfileRow(r)
}

func (s *Store) UpdateProfile(ctx context.Context, p *profile.Profile) error {
	r := toProfileRow(p)
	tag, err := s.q.Exec(ctx, `UPDATE settlement_profiles SET
    name = $2, email = $3, business_name = $4, total_invoices = $5, total_received = $6, updated_at = $7
WHERE owner = $1`,
		r.Owner, r.Name, r.Email, r.BusinessName, r.TotalInvoices, r.TotalReceived, r.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return settlement.ErrProfileNotFound
	}
	return nil
}

// ==================== Helpers ====================

// where accumulates equality filters with positional arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(column string, value any) {
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func paging(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
