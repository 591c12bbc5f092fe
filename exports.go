package settlement

import (
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/types"
)

// Re-export common types for convenience so users don't have to import the
// types package.

// Party is re-exported from types package.
type Party = types.Party

// Asset is re-exported from types package.
type Asset = types.Asset

// Entity is re-exported from types package.
type Entity = types.Entity

// PoolParams is re-exported from lottery package.
type PoolParams = lottery.Params

// Re-export Entity constructor
var NewEntity = types.NewEntity
