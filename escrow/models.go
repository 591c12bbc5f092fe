package escrow

import (
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/transfer"
	"github.com/xraph/settlement/types"
)

// Escrow records the vault holding an invoice's milestone funds. It is
// created once, when the invoice is first funded.
type Escrow struct {
	types.Entity
	ID           id.EscrowID      `json:"id"`
	InvoiceID    id.InvoiceID     `json:"invoice_id"`
	Number       string           `json:"number"`
	Vault        transfer.Account `json:"vault"`
	Authority    types.Party      `json:"authority"`
	FundedAmount uint64           `json:"funded_amount"`
}

// For builds the escrow record of an invoice with its derived vault.
func For(invoiceID id.InvoiceID, number string, asset types.Asset, funded uint64) *Escrow {
	return &Escrow{
		Entity:       types.NewEntity(),
		ID:           id.NewEscrowID(),
		InvoiceID:    invoiceID,
		Number:       number,
		Vault:        transfer.EscrowVault(invoiceID, asset),
		Authority:    transfer.EscrowAuthority(invoiceID),
		FundedAmount: funded,
	}
}
