// Package mongo implements store.Store on MongoDB through grove. Atomic
// requires a replica set or sharded cluster, since it runs a multi-document
// transaction.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/escrow"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/profile"
	settlementstore "github.com/xraph/settlement/store"
	"github.com/xraph/settlement/types"
)

// Collection name constants.
const (
	colInvoices = "settlement_invoices"
	colEscrows  = "settlement_escrows"
	colPools    = "settlement_lottery_pools"
	colEntries  = "settlement_lottery_entries"
	colProfiles = "settlement_profiles"
)

// compile-time interface check
var _ settlementstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db   *grove.DB
	mdb  *mongodriver.MongoDB
	inTx bool
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all settlement collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("settlement/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Atomic runs fn in a multi-document transaction bound to a session. fn
// runs exactly once; a failed commit is reported, not retried. A nested
// call joins the enclosing transaction.
func (s *Store) Atomic(ctx context.Context, fn settlementstore.TxFunc) error {
	if s.inTx {
		return fn(ctx, s)
	}

	client := s.mdb.Collection(colInvoices).Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: start session: %w", settlement.ErrTransactionFailed, err)
	}
	defer sess.EndSession(context.Background())

	if err := sess.StartTransaction(); err != nil {
		return fmt.Errorf("%w: start transaction: %w", settlement.ErrTransactionFailed, err)
	}

	txCtx := mongo.NewSessionContext(ctx, sess)
	if err := fn(txCtx, &Store{db: s.db, mdb: s.mdb, inTx: true}); err != nil {
		_ = sess.AbortTransaction(context.Background()) //nolint:errcheck // the fn error wins
		return err
	}
	if err := sess.CommitTransaction(txCtx); err != nil {
		return fmt.Errorf("%w: commit: %w", settlement.ErrTransactionFailed, err)
	}
	return nil
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	_, err := s.mdb.NewInsert(toInvoiceModel(inv)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return settlement.ErrInvoiceExists
		}
		return fmt.Errorf("settlement/mongo: create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return s.findInvoice(ctx, bson.M{"_id": invID.String()})
}

func (s *Store) GetInvoiceByNumber(ctx context.Context, creator types.Party, number string) (*invoice.Invoice, error) {
	return s.findInvoice(ctx, bson.M{"creator": string(creator), "number": number})
}

func (s *Store) findInvoice(ctx context.Context, filter bson.M) (*invoice.Invoice, error) {
	var m invoiceModel
	if err := s.mdb.NewFind(&m).Filter(filter).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, settlement.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("settlement/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel

	filter := bson.M{}
	if opts.Creator != "" {
		filter["creator"] = string(opts.Creator)
	}
	if opts.Client != "" {
		filter["client"] = string(opts.Client)
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("settlement/mongo: list invoices: %w", err)
	}

	result := make([]*invoice.Invoice, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inv
	}
	return result, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("settlement/mongo: update invoice: %w", err)
	}
	if res.MatchedCount() == 0 {
		return settlement.ErrInvoiceNotFound
	}
	return nil
}

// ==================== Escrow Store ====================

func (s *Store) CreateEscrow(ctx context.Context, e *escrow.Escrow) error {
	_, err := s.mdb.NewInsert(toEscrowModel(e)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return settlement.ErrEscrowExists
		}
		return fmt.Errorf("settlement/mongo: create escrow: %w", err)
	}
	return nil
}

func (s *Store) GetEscrow(ctx context.Context, invID id.InvoiceID) (*escrow.Escrow, error) {
	var m escrowModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"invoice_id": invID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, settlement.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("settlement/mongo: get escrow: %w", err)
	}
	return fromEscrowModel(&m)
}

// ==================== Lottery Pool Store ====================

func (s *Store) CreatePool(ctx context.Context, p *lottery.Pool) error {
	_, err := s.mdb.NewInsert(toPoolModel(p)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return settlement.ErrPoolExists
		}
		return fmt.Errorf("settlement/mongo: create pool: %w", err)
	}
	return nil
}

func (s *Store) GetPool(ctx context.Context, asset types.Asset) (*lottery.Pool, error) {
	var m poolModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"asset": string(asset)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, settlement.ErrPoolNotFound
		}
		return nil, fmt.Errorf("settlement/mongo: get pool: %w", err)
	}
	return fromPoolModel(&m)
}

func (s *Store) ListPools(ctx context.Context) ([]*lottery.Pool, error) {
	var models []poolModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "asset", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement/mongo: list pools: %w", err)
	}

	result := make([]*lottery.Pool, len(models))
	for i := range models {
		p, err := fromPoolModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) UpdatePool(ctx context.Context, p *lottery.Pool) error {
	m := toPoolModel(p)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"asset": m.Asset}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("settlement/mongo: update pool: %w", err)
	}
	if res.MatchedCount() == 0 {
		return settlement.ErrPoolNotFound
	}
	return nil
}

// ==================== Lottery Entry Store ====================

func (s *Store) CreateEntry(ctx context.Context, e *lottery.Entry) error {
	_, err := s.mdb.NewInsert(toEntryModel(e)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return settlement.ErrEntryExists
		}
		return fmt.Errorf("settlement/mongo: create entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, invID id.InvoiceID, participant types.Party) (*lottery.Entry, error) {
	var m entryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"invoice_id": invID.String(), "participant": string(participant)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, settlement.ErrEntryNotFound
		}
		return nil, fmt.Errorf("settlement/mongo: get entry: %w", err)
	}
	return fromEntryModel(&m)
}

func (s *Store) ListEntries(ctx context.Context, opts lottery.ListOpts) ([]*lottery.Entry, error) {
	var models []entryModel

	filter := bson.M{}
	if !opts.InvoiceID.IsNil() {
		filter["invoice_id"] = opts.InvoiceID.String()
	}
	if opts.Participant != "" {
		filter["participant"] = string(opts.Participant)
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("settlement/mongo: list entries: %w", err)
	}

	result := make([]*lottery.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e *lottery.Entry) error {
	m := toEntryModel(e)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("settlement/mongo: update entry: %w", err)
	}
	if res.MatchedCount() == 0 {
		return settlement.ErrEntryNotFound
	}
	return nil
}

// ==================== Profile Store ====================

func (s *Store) CreateProfile(ctx context.Context, p *profile.Profile) error {
	_, err := s.mdb.NewInsert(toProfileModel(p)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return settlement.ErrProfileExists
		}
		return fmt.Errorf("settlement/mongo: create profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, owner types.Party) (*profile.Profile, error) {
	var m profileModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"owner": string(owner)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, settlement.ErrProfileNotFound
		}
		return nil, fmt.Errorf("settlement/mongo: get profile: %w", err)
	}
	return fromProfileModel(&m)
}

func (s *Store) UpdateProfile(ctx context.Context, p *profile.Profile) error {
	m := toProfileModel(p)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"owner": m.Owner}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("settlement/mongo: update profile: %w", err)
	}
	if res.MatchedCount() == 0 {
		return settlement.ErrProfileNotFound
	}
	return nil
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all settlement collections.
// Unique indexes back the duplicate checks of the Create methods.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colInvoices: {
			{
				Keys:    bson.D{{Key: "creator", Value: 1}, {Key: "number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "client", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colEscrows: {
			{
				Keys:    bson.D{{Key: "invoice_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colPools: {
			{
				Keys:    bson.D{{Key: "asset", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colEntries: {
			{
				Keys:    bson.D{{Key: "invoice_id", Value: 1}, {Key: "participant", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "participant", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colProfiles: {
			{
				Keys:    bson.D{{Key: "owner", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
