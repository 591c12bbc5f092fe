package plugin

import (
	"time"

	"github.com/xraph/settlement/escrow"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/profile"
	"github.com/xraph/settlement/types"
)

// Events carry copies of the records as committed by the operation that
// emitted them.

type InvoiceCreated struct {
	Invoice *invoice.Invoice
}

type EscrowFunded struct {
	Invoice *invoice.Invoice
	Escrow  *escrow.Escrow
	Client  types.Party
	Amount  uint64
}

type MilestoneReleased struct {
	Invoice *invoice.Invoice
	Index   int
	Amount  uint64
}

type InvoicePaid struct {
	Invoice   *invoice.Invoice
	Payer     types.Party
	Reference string
	PaidAt    time.Time
}

type InvoiceCancelled struct {
	Invoice *invoice.Invoice
	Caller  types.Party
}

type LotteryPoolCreated struct {
	Pool *lottery.Pool
}

type LotteryPoolSeeded struct {
	Pool   *lottery.Pool
	Seeder types.Party
	Amount uint64
}

type LotteryPoolToggled struct {
	Pool *lottery.Pool
}

type LotteryEntryCreated struct {
	Entry   *lottery.Entry
	Invoice *invoice.Invoice
}

type LotteryWon struct {
	Entry   *lottery.Entry
	Invoice *invoice.Invoice
	Pool    *lottery.Pool
	Amount  uint64
}

type LotteryLost struct {
	Entry   *lottery.Entry
	Invoice *invoice.Invoice
	Pool    *lottery.Pool
}

type ProfileCreated struct {
	Profile *profile.Profile
}

// OperationFailed reports an engine operation that returned an error.
type OperationFailed struct {
	Operation string
	Resource  string
	Err       error
}
