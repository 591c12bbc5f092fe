package lottery

import (
	"context"

	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/types"
)

type PoolStore interface {
	CreatePool(ctx context.Context, p *Pool) error
	GetPool(ctx context.Context, asset types.Asset) (*Pool, error)
	ListPools(ctx context.Context) ([]*Pool, error)
	UpdatePool(ctx context.Context, p *Pool) error
}

type EntryStore interface {
	CreateEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, invoiceID id.InvoiceID, participant types.Party) (*Entry, error)
	ListEntries(ctx context.Context, opts ListOpts) ([]*Entry, error)
	UpdateEntry(ctx context.Context, e *Entry) error
}

// ListOpts filters entry listings. Zero-valued fields do not filter.
type ListOpts struct {
	InvoiceID   id.InvoiceID
	Participant types.Party
	Status      EntryStatus
	Limit       int
	Offset      int
}
