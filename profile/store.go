package profile

import (
	"context"

	"github.com/xraph/settlement/types"
)

type Store interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, owner types.Party) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
}
