package profile

import (
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/types"
)

// Field limits enforced at creation.
const (
	MaxNameLength         = 64
	MaxEmailLength        = 128
	MaxBusinessNameLength = 128
)

// Profile describes an invoicing party and accumulates their totals.
type Profile struct {
	types.Entity
	ID            id.ProfileID `json:"id"`
	Owner         types.Party  `json:"owner"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	BusinessName  string       `json:"business_name,omitempty"`
	TotalInvoices uint64       `json:"total_invoices"`
	TotalReceived uint64       `json:"total_received"`
}

// RecordInvoice counts one more invoice issued by the owner.
func (p *Profile) RecordInvoice() error {
	n, err := types.CheckedAdd(p.TotalInvoices, 1)
	if err != nil {
		return err
	}
	p.TotalInvoices = n
	return nil
}

// RecordReceipt adds an amount credited to the owner.
func (p *Profile) RecordReceipt(amount uint64) error {
	n, err := types.CheckedAdd(p.TotalReceived, amount)
	if err != nil {
		return err
	}
	p.TotalReceived = n
	return nil
}
