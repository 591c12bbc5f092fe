package lottery

import (
	"time"

	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/types"
)

// Params are a pool's risk parameters, fixed at creation.
type Params struct {
	HouseEdgeBps      uint16 `json:"house_edge_bps"`
	MinPoolReserveBps uint16 `json:"min_pool_reserve_bps"`
	MaxWinPctBps      uint16 `json:"max_win_pct_bps"`
}

// Pool is the per-asset fund that underwrites lottery payments.
type Pool struct {
	types.Entity
	ID                     id.PoolID   `json:"id"`
	Authority              types.Party `json:"authority"`
	Asset                  types.Asset `json:"asset"`
	TotalBalance           uint64      `json:"total_balance"`
	TotalPremiumsCollected uint64      `json:"total_premiums_collected"`
	TotalPayouts           uint64      `json:"total_payouts"`
	TotalEntries           uint64      `json:"total_entries"`
	TotalWins              uint64      `json:"total_wins"`
	Params
	Paused bool `json:"paused"`
}

// AvailablePool is the part of the balance above the reserve.
func (p *Pool) AvailablePool() uint64 {
	return AvailablePool(p.TotalBalance, p.MinPoolReserveBps)
}

// MaxWin is the largest invoice the pool currently admits.
func (p *Pool) MaxWin() uint64 {
	return MaxWin(p.AvailablePool(), p.MaxWinPctBps)
}

func (p *Pool) Clone() *Pool {
	c := *p
	return &c
}

type EntryStatus string

const (
	EntryPendingSettlement EntryStatus = "pending_settlement"
	EntryWon               EntryStatus = "won"
	EntryLost              EntryStatus = "lost"
)

// Entry is one participant's lottery ticket against one invoice.
type Entry struct {
	types.Entity
	ID                id.EntryID   `json:"id"`
	InvoiceID         id.InvoiceID `json:"invoice_id"`
	Participant       types.Party  `json:"participant"`
	InvoiceAmount     uint64       `json:"invoice_amount"`
	PremiumPaid       uint64       `json:"premium_paid"`
	WinProbabilityBps uint16       `json:"win_probability_bps"`
	Status            EntryStatus  `json:"status"`
	RandomResult      []byte       `json:"random_result,omitempty"`
	ResolvedAt        *time.Time   `json:"resolved_at,omitempty"`
}

// Settled reports whether the entry has been resolved.
func (e *Entry) Settled() bool {
	return e.Status != EntryPendingSettlement
}

func (e *Entry) Clone() *Entry {
	c := *e
	if e.RandomResult != nil {
		c.RandomResult = append([]byte(nil), e.RandomResult...)
	}
	if e.ResolvedAt != nil {
		t := *e.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}
