package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/settlement/escrow"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/profile"
	"github.com/xraph/settlement/transfer"
	"github.com/xraph/settlement/types"
)

// ==================== Invoice models ====================

type invoiceModel struct {
	grove.BaseModel `grove:"table:settlement_invoices"`

	ID               string           `grove:"id,pk"             bson:"_id"`
	Creator          string           `grove:"creator"           bson:"creator"`
	Client           string           `grove:"client"            bson:"client"`
	Number           string           `grove:"number"            bson:"number"`
	Amount           uint64           `grove:"amount"            bson:"amount"`
	Asset            string           `grove:"asset"             bson:"asset"`
	DueDate          time.Time        `grove:"due_date"          bson:"due_date"`
	Memo             string           `grove:"memo"              bson:"memo"`
	Status           string           `grove:"status"            bson:"status"`
	PaidAt           *time.Time       `grove:"paid_at"           bson:"paid_at,omitempty"`
	Milestones       []milestoneModel `grove:"milestones"        bson:"milestones"`
	CurrentMilestone int              `grove:"current_milestone" bson:"current_milestone"`
	EscrowFunded     bool             `grove:"escrow_funded"     bson:"escrow_funded"`
	CreatedAt        time.Time        `grove:"created_at"        bson:"created_at"`
	UpdatedAt        time.Time        `grove:"updated_at"        bson:"updated_at"`
}

type milestoneModel struct {
	Description string     `bson:"description"`
	Amount      uint64     `bson:"amount"`
	Completed   bool       `bson:"completed"`
	CompletedAt *time.Time `bson:"completed_at,omitempty"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	milestones := make([]milestoneModel, len(inv.Milestones))
	for i, m := range inv.Milestones {
		milestones[i] = milestoneModel{
			Description: m.Description,
			Amount:      m.Amount,
			Completed:   m.Completed,
			CompletedAt: m.CompletedAt,
		}
	}
	return &invoiceModel{
		ID:               inv.ID.String(),
		Creator:          string(inv.Creator),
		Client:           string(inv.Client),
		Number:           inv.Number,
		Amount:           inv.Amount,
		Asset:            string(inv.Asset),
		DueDate:          inv.DueDate,
		Memo:             inv.Memo,
		Status:           string(inv.Status),
		PaidAt:           inv.PaidAt,
		Milestones:       milestones,
		CurrentMilestone: inv.CurrentMilestone,
		EscrowFunded:     inv.EscrowFunded,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}
	var milestones []invoice.Milestone
	for _, mm := range m.Milestones {
		milestones = append(milestones, invoice.Milestone{
			Description: mm.Description,
			Amount:      mm.Amount,
			Completed:   mm.Completed,
			CompletedAt: utcPtr(mm.CompletedAt),
		})
	}
	return &invoice.Invoice{
		Entity:           types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:               invID,
		Creator:          types.Party(m.Creator),
		Client:           types.Party(m.Client),
		Number:           m.Number,
		Amount:           m.Amount,
		Asset:            types.Asset(m.Asset),
		DueDate:          m.DueDate.UTC(),
		Memo:             m.Memo,
		Status:           invoice.Status(m.Status),
		PaidAt:           utcPtr(m.PaidAt),
		Milestones:       milestones,
		CurrentMilestone: m.CurrentMilestone,
		EscrowFunded:     m.EscrowFunded,
	}, nil
}

// ==================== Escrow models ====================

type escrowModel struct {
	grove.BaseModel `grove:"table:settlement_escrows"`

	ID           string    `grove:"id,pk"         bson:"_id"`
	InvoiceID    string    `grove:"invoice_id"    bson:"invoice_id"`
	Number       string    `grove:"number"        bson:"number"`
	VaultOwner   string    `grove:"vault_owner"   bson:"vault_owner"`
	VaultAsset   string    `grove:"vault_asset"   bson:"vault_asset"`
	Authority    string    `grove:"authority"     bson:"authority"`
	FundedAmount uint64    `grove:"funded_amount" bson:"funded_amount"`
	CreatedAt    time.Time `grove:"created_at"    bson:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"    bson:"updated_at"`
}

func toEscrowModel(e *escrow.Escrow) *escrowModel {
	return &escrowModel{
		ID:           e.ID.String(),
		InvoiceID:    e.InvoiceID.String(),
		Number:       e.Number,
		VaultOwner:   string(e.Vault.Owner),
		VaultAsset:   string(e.Vault.Asset),
		Authority:    string(e.Authority),
		FundedAmount: e.FundedAmount,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func fromEscrowModel(m *escrowModel) (*escrow.Escrow, error) {
	escID, err := id.ParseEscrowID(m.ID)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseInvoiceID(m.InvoiceID)
	if err != nil {
		return nil, err
	}
	return &escrow.Escrow{
		Entity:       types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:           escID,
		InvoiceID:    invID,
		Number:       m.Number,
		Vault:        transfer.Account{Owner: types.Party(m.VaultOwner), Asset: types.Asset(m.VaultAsset)},
		Authority:    types.Party(m.Authority),
		FundedAmount: m.FundedAmount,
	}, nil
}

// ==================== Lottery models ====================

type poolModel struct {
	grove.BaseModel `grove:"table:settlement_lottery_pools"`

	ID                     string    `grove:"id,pk"                    bson:"_id"`
	Authority              string    `grove:"authority"                bson:"authority"`
	Asset                  string    `grove:"asset"                    bson:"asset"`
	TotalBalance           uint64    `grove:"total_balance"            bson:"total_balance"`
	TotalPremiumsCollected uint64    `grove:"total_premiums_collected" bson:"total_premiums_collected"`
	TotalPayouts           uint64    `grove:"total_payouts"            bson:"total_payouts"`
	TotalEntries           uint64    `grove:"total_entries"            bson:"total_entries"`
	TotalWins              uint64    `grove:"total_wins"               bson:"total_wins"`
	HouseEdgeBps           uint16    `grove:"house_edge_bps"           bson:"house_edge_bps"`
	MinPoolReserveBps      uint16    `grove:"min_pool_reserve_bps"     bson:"min_pool_reserve_bps"`
	MaxWinPctBps           uint16    `grove:"max_win_pct_bps"          bson:"max_win_pct_bps"`
	Paused                 bool      `grove:"paused"                   bson:"paused"`
	CreatedAt              time.Time `grove:"created_at"               bson:"created_at"`
	UpdatedAt              time.Time `grove:"updated_at"               bson:"updated_at"`
}

func toPoolModel(p *lottery.Pool) *poolModel {
	return &poolModel{
		ID:                     p.ID.String(),
		Authority:              string(p.Authority),
		Asset:                  string(p.Asset),
		TotalBalance:           p.TotalBalance,
		TotalPremiumsCollected: p.TotalPremiumsCollected,
		TotalPayouts:           p.TotalPayouts,
		TotalEntries:           p.TotalEntries,
		TotalWins:              p.TotalWins,
		HouseEdgeBps:           p.HouseEdgeBps,
		MinPoolReserveBps:      p.MinPoolReserveBps,
		MaxWinPctBps:           p.MaxWinPctBps,
		Paused:                 p.Paused,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
}

func fromPoolModel(m *poolModel) (*lottery.Pool, error) {
	poolID, err := id.ParsePoolID(m.ID)
	if err != nil {
		return nil, err
	}
	return &lottery.Pool{
		Entity:                 types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:                     poolID,
		Authority:              types.Party(m.Authority),
		Asset:                  types.Asset(m.Asset),
		TotalBalance:           m.TotalBalance,
		TotalPremiumsCollected: m.TotalPremiumsCollected,
		TotalPayouts:           m.TotalPayouts,
		TotalEntries:           m.TotalEntries,
		TotalWins:              m.TotalWins,
		Params: lottery.Params{
			HouseEdgeBps:      m.HouseEdgeBps,
			MinPoolReserveBps: m.MinPoolReserveBps,
			MaxWinPctBps:      m.MaxWinPctBps,
		},
		Paused: m.Paused,
	}, nil
}

type entryModel struct {
	grove.BaseModel `grove:"table:settlement_lottery_entries"`

	ID                string     `grove:"id,pk"               bson:"_id"`
	InvoiceID         string     `grove:"invoice_id"          bson:"invoice_id"`
	Participant       string     `grove:"participant"         bson:"participant"`
	InvoiceAmount     uint64     `grove:"invoice_amount"      bson:"invoice_amount"`
	PremiumPaid       uint64     `grove:"premium_paid"        bson:"premium_paid"`
	WinProbabilityBps uint16     `grove:"win_probability_bps" bson:"win_probability_bps"`
	Status            string     `grove:"status"              bson:"status"`
	RandomResult      []byte     `grove:"random_result"       bson:"random_result,omitempty"`
	ResolvedAt        *time.Time `grove:"resolved_at"         bson:"resolved_at,omitempty"`
	CreatedAt         time.Time  `grove:"created_at"          bson:"created_at"`
	UpdatedAt         time.Time  `grove:"updated_at"          bson:"updated_at"`
}

func toEntryModel(e *lottery.Entry) *entryModel {
	return &entryModel{
		ID:                e.ID.String(),
		InvoiceID:         e.InvoiceID.String(),
		Participant:       string(e.Participant),
		InvoiceAmount:     e.InvoiceAmount,
		PremiumPaid:       e.PremiumPaid,
		WinProbabilityBps: e.WinProbabilityBps,
		Status:            string(e.Status),
		RandomResult:      e.RandomResult,
		ResolvedAt:        e.ResolvedAt,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func fromEntryModel(m *entryModel) (*lottery.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseInvoiceID(m.InvoiceID)
	if err != nil {
		return nil, err
	}
	return &lottery.Entry{
		Entity:            types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:                entryID,
		InvoiceID:         invID,
		Participant:       types.Party(m.Participant),
		InvoiceAmount:     m.InvoiceAmount,
		PremiumPaid:       m.PremiumPaid,
		WinProbabilityBps: m.WinProbabilityBps,
		Status:            lottery.EntryStatus(m.Status),
		RandomResult:      m.RandomResult,
		ResolvedAt:        utcPtr(m.ResolvedAt),
	}, nil
}

// ==================== Profile models ====================

type profileModel struct {
	grove.BaseModel `grove:"table:settlement_profiles"`

	ID            string    `grove:"id,pk"          bson:"_id"`
	Owner         string    `grove:"owner"          bson:"owner"`
	Name          string    `grove:"name"           bson:"name"`
	Email         string    `grove:"email"          bson:"email"`
	BusinessName  string    `grove:"business_name"  bson:"business_name"`
	TotalInvoices uint64    `grove:"total_invoices" bson:"total_invoices"`
	TotalReceived uint64    `grove:"total_received" bson:"total_received"`
	CreatedAt     time.Time `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"     bson:"updated_at"`
}

func toProfileModel(p *profile.Profile) *profileModel {
	return &profileModel{
		ID:            p.ID.String(),
		Owner:         string(p.Owner),
		Name:          p.Name,
		Email:         p.Email,
		BusinessName:  p.BusinessName,
		TotalInvoices: p.TotalInvoices,
		TotalReceived: p.TotalReceived,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func fromProfileModel(m *profileModel) (*profile.Profile, error) {
	profileID, err := id.ParseProfileID(m.ID)
	if err != nil {
		return nil, err
	}
	return &profile.Profile{
		Entity:        types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:            profileID,
		Owner:         types.Party(m.Owner),
		Name:          m.Name,
		Email:         m.Email,
		BusinessName:  m.BusinessName,
		TotalInvoices: m.TotalInvoices,
		TotalReceived: m.TotalReceived,
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
