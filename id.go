package settlement

import "github.com/xraph/settlement/id"

// ID is the primary identifier type for all settlement entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
