package escrow

import (
	"context"

	"github.com/xraph/settlement/id"
)

type Store interface {
	Create(ctx context.Context, e *Escrow) error
	Get(ctx context.Context, invoiceID id.InvoiceID) (*Escrow, error)
}
