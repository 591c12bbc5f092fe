package types

import "strings"

// Party identifies an actor: a creator, client, pool authority or a
// program-owned authority such as an escrow. Parties are opaque strings
// (wallet addresses, user IDs) and compared by value.
type Party string

// Prefixes reserved for program-owned authorities. No external actor may
// act as a party under them.
const (
	EscrowProgramPrefix = "escrow:"
	PoolProgramPrefix   = "lottery_pool:"
)

// IsZero reports whether the party is unset.
func (p Party) IsZero() bool { return p == "" }

// IsProgram reports whether p falls in a reserved program namespace.
func (p Party) IsProgram() bool {
	s := string(p)
	return strings.HasPrefix(s, EscrowProgramPrefix) || strings.HasPrefix(s, PoolProgramPrefix)
}

// String implements fmt.Stringer.
func (p Party) String() string { return string(p) }

// Asset identifies a fungible asset type (a token mint, an asset code).
// One invoice and the pool it is paired with always share one asset.
type Asset string

// String implements fmt.Stringer.
func (a Asset) String() string { return string(a) }
