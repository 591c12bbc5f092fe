package invoice

import (
	"context"

	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/types"
)

type Store interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, invID id.InvoiceID) (*Invoice, error)
	GetByNumber(ctx context.Context, creator types.Party, number string) (*Invoice, error)
	List(ctx context.Context, opts ListOpts) ([]*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
}

// ListOpts filters invoice listings. Zero-valued fields do not filter.
type ListOpts struct {
	Creator types.Party
	Client  types.Party
	Status  Status
	Limit   int
	Offset  int
}
