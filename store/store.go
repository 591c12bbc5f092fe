package store

import (
	"context"

	"github.com/xraph/settlement/escrow"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/profile"
	"github.com/xraph/settlement/types"
)

// TxFunc runs inside a store transaction. tx sees the transaction's writes;
// returning an error rolls every one of them back.
type TxFunc func(ctx context.Context, tx Store) error

// Store is the unified storage interface for all settlement entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Invoice methods
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error)
	GetInvoiceByNumber(ctx context.Context, creator types.Party, number string) (*invoice.Invoice, error)
	ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error

	// Escrow methods
	CreateEscrow(ctx context.Context, e *escrow.Escrow) error
	GetEscrow(ctx context.Context, invID id.InvoiceID) (*escrow.Escrow, error)

	// Lottery pool methods
	CreatePool(ctx context.Context, p *lottery.Pool) error
	GetPool(ctx context.Context, asset types.Asset) (*lottery.Pool, error)
	ListPools(ctx context.Context) ([]*lottery.Pool, error)
	UpdatePool(ctx context.Context, p *lottery.Pool) error

	// Lottery entry methods
	CreateEntry(ctx context.Context, e *lottery.Entry) error
	GetEntry(ctx context.Context, invID id.InvoiceID, participant types.Party) (*lottery.Entry, error)
	ListEntries(ctx context.Context, opts lottery.ListOpts) ([]*lottery.Entry, error)
	UpdateEntry(ctx context.Context, e *lottery.Entry) error

	// Profile methods
	CreateProfile(ctx context.Context, p *profile.Profile) error
	GetProfile(ctx context.Context, owner types.Party) (*profile.Profile, error)
	UpdateProfile(ctx context.Context, p *profile.Profile) error

	// Atomic runs fn in a transaction. Reads through tx that precede a
	// write of the same record lock it until commit where the backend
	// supports row locks.
	Atomic(ctx context.Context, fn TxFunc) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
