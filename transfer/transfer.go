// Package transfer defines the value-transfer ledger the settlement engine
// moves funds through, plus the program-owned accounts it derives.
//
// The engine never holds balances itself. Every movement of value is a
// Transfer between two Accounts of the same asset, authorized by the owner
// of the source account. Implementations apply every transfer of a single
// Ledger.Transfer call atomically: all of them or none.
package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/types"
)

var (
	ErrInsufficientFunds = errors.New("transfer: insufficient funds")
	ErrUnauthorized      = errors.New("transfer: authorizer does not own source account")
	ErrAssetMismatch     = errors.New("transfer: source and destination assets differ")
	ErrInvalidTransfer   = errors.New("transfer: invalid transfer")
)

// Ledger moves value between accounts.
type Ledger interface {
	Transfer(ctx context.Context, transfers ...Transfer) error
}

// Account is a balance of one asset held by one owner.
type Account struct {
	Owner types.Party `json:"owner"`
	Asset types.Asset `json:"asset"`
}

func (a Account) String() string {
	return fmt.Sprintf("%s/%s", a.Owner, a.Asset)
}

// Transfer moves Amount from From to To. Authorizer must own From.
type Transfer struct {
	From       Account     `json:"from"`
	To         Account     `json:"to"`
	Amount     uint64      `json:"amount"`
	Authorizer types.Party `json:"authorizer"`
}

// Validate checks the shape of the transfer. Ownership and balances are the
// ledger's concern.
func (t Transfer) Validate() error {
	if t.From.Owner.IsZero() || t.To.Owner.IsZero() || t.Authorizer.IsZero() {
		return fmt.Errorf("%w: missing party", ErrInvalidTransfer)
	}
	if t.From.Asset == "" || t.To.Asset == "" {
		return fmt.Errorf("%w: missing asset", ErrInvalidTransfer)
	}
	if t.From.Asset != t.To.Asset {
		return ErrAssetMismatch
	}
	if t.From == t.To {
		return fmt.Errorf("%w: source equals destination", ErrInvalidTransfer)
	}
	return nil
}

// Wallet returns the account a party holds an asset in.
func Wallet(owner types.Party, asset types.Asset) Account {
	return Account{Owner: owner, Asset: asset}
}

// EscrowAuthority is the program identity that owns an invoice's escrow vault.
func EscrowAuthority(invoiceID id.InvoiceID) types.Party {
	return types.Party(types.EscrowProgramPrefix + invoiceID.String())
}

// EscrowVault is the account holding an invoice's escrowed funds.
func EscrowVault(invoiceID id.InvoiceID, asset types.Asset) Account {
	return Account{Owner: EscrowAuthority(invoiceID), Asset: asset}
}

// PoolAuthority is the program identity that owns the lottery pool vault of
// an asset.
func PoolAuthority(asset types.Asset) types.Party {
	return types.Party(types.PoolProgramPrefix + string(asset))
}

// PoolVault is the account holding the lottery pool's funds for an asset.
func PoolVault(asset types.Asset) Account {
	return Account{Owner: PoolAuthority(asset), Asset: asset}
}
