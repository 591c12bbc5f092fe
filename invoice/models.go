package invoice

import (
	"time"

	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/types"
)

// Field limits enforced at creation.
const (
	MaxNumberLength         = 32
	MaxMemoLength           = 256
	MaxMilestones           = 10
	MaxMilestoneDescription = 128
	MaxReferenceLength      = 88
)

type Status string

const (
	StatusPending      Status = "pending"
	StatusEscrowFunded Status = "escrow_funded"
	StatusPaid         Status = "paid"
	StatusCancelled    Status = "cancelled"
	StatusDisputed     Status = "disputed"
)

// transitions lists every allowed status change. A status absent from the
// map, or mapped to nothing, is terminal.
var transitions = map[Status][]Status{
	StatusPending:      {StatusEscrowFunded, StatusPaid, StatusCancelled},
	StatusEscrowFunded: {StatusPaid},
	StatusPaid:         nil,
	StatusCancelled:    nil,
	StatusDisputed:     nil,
}

// CanTransition reports whether an invoice may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Invoice is a payable claim from Creator against Client in a single asset.
type Invoice struct {
	types.Entity
	ID               id.InvoiceID `json:"id"`
	Creator          types.Party  `json:"creator"`
	Client           types.Party  `json:"client,omitempty"`
	Number           string       `json:"number"`
	Amount           uint64       `json:"amount"`
	Asset            types.Asset  `json:"asset"`
	DueDate          time.Time    `json:"due_date"`
	Memo             string       `json:"memo,omitempty"`
	Status           Status       `json:"status"`
	PaidAt           *time.Time   `json:"paid_at,omitempty"`
	Milestones       []Milestone  `json:"milestones,omitempty"`
	CurrentMilestone int          `json:"current_milestone"`
	EscrowFunded     bool         `json:"escrow_funded"`
}

// Milestone is one tranche of an escrowed invoice, released in index order.
type Milestone struct {
	Description string     `json:"description"`
	Amount      uint64     `json:"amount"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// HasMilestones reports whether the invoice was created with an escrow schedule.
func (inv *Invoice) HasMilestones() bool {
	return len(inv.Milestones) > 0
}

// NextMilestone returns the milestone to be released next, or nil when all
// have been released.
func (inv *Invoice) NextMilestone() *Milestone {
	if inv.CurrentMilestone >= len(inv.Milestones) {
		return nil
	}
	return &inv.Milestones[inv.CurrentMilestone]
}

// IsParty reports whether p is the creator or the client of the invoice.
func (inv *Invoice) IsParty(p types.Party) bool {
	if p.IsZero() {
		return false
	}
	return p == inv.Creator || p == inv.Client
}

// Clone returns a deep copy of the invoice.
func (inv *Invoice) Clone() *Invoice {
	c := *inv
	if inv.PaidAt != nil {
		t := *inv.PaidAt
		c.PaidAt = &t
	}
	if inv.Milestones != nil {
		c.Milestones = make([]Milestone, len(inv.Milestones))
		for i, m := range inv.Milestones {
			if m.CompletedAt != nil {
				t := *m.CompletedAt
				m.CompletedAt = &t
			}
			c.Milestones[i] = m
		}
	}
	return &c
}
