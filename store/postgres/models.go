package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/settlement/escrow"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/profile"
	"github.com/xraph/settlement/transfer"
	"github.com/xraph/settlement/types"
)

// ==================== Invoice rows ====================

const invoiceColumns = `id, creator, client, number, amount, asset, due_date, memo, status,
	paid_at, milestones, current_milestone, escrow_funded, created_at, updated_at`

type invoiceRow struct {
	ID               string
	Creator          string
	Client           string
	Number           string
	Amount           uint64
	Asset            string
	DueDate          time.Time
	Memo             string
	Status           string
	PaidAt           *time.Time
	Milestones       []byte
	CurrentMilestone int
	EscrowFunded     bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (r *invoiceRow) fields() []any {
	return []any{
		&r.ID, &r.Creator, &r.Client, &r.Number, &r.Amount, &r.Asset, &r.DueDate, &r.Memo, &r.Status,
		&r.PaidAt, &r.Milestones, &r.CurrentMilestone, &r.EscrowFunded, &r.CreatedAt, &r.UpdatedAt,
	}
}

func (r *invoiceRow) values() []any {
	return []any{
		r.ID, r.Creator, r.Client, r.Number, r.Amount, r.Asset, r.DueDate, r.Memo, r.Status,
		r.PaidAt, r.Milestones, r.CurrentMilestone, r.EscrowFunded, r.CreatedAt, r.UpdatedAt,
	}
}

func toInvoiceRow(inv *invoice.Invoice) (*invoiceRow, error) {
	milestones := inv.Milestones
	if milestones == nil {
		milestones = []invoice.Milestone{}
	}
	raw, err := json.Marshal(milestones)
	if err != nil {
		return nil, fmt.Errorf("settlement/postgres: encode milestones: %w", err)
	}
	return &invoiceRow{
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
		Milestones:       raw,
		CurrentMilestone: inv.CurrentMilestone,
		EscrowFunded:     inv.EscrowFunded,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}, nil
}

func fromInvoiceRow(r *invoiceRow) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(r.ID)
	if err != nil {
		return nil, err
	}
	var milestones []invoice.Milestone
	if len(r.Milestones) > 0 {
		if err := json.Unmarshal(r.Milestones, &milestones); err != nil {
			return nil, fmt.Errorf("settlement/postgres: decode milestones: %w", err)
		}
	}
	if len(milestones) == 0 {
		milestones = nil
	}
	return &invoice.Invoice{
		Entity:           types.Entity{CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()},
		ID:               invID,
		Creator:          types.Party(r.Creator),
		Client:           types.Party(r.Client),
		Number:           r.Number,
		Amount:           r.Amount,
		Asset:            types.Asset(r.Asset),
		DueDate:          r.DueDate.UTC(),
		Memo:             r.Memo,
		Status:           invoice.Status(r.Status),
		PaidAt:           utcPtr(r.PaidAt),
		Milestones:       milestones,
		CurrentMilestone: r.CurrentMilestone,
		EscrowFunded:     r.EscrowFunded,
	}, nil
}

// ==================== Escrow rows ====================

const escrowColumns = `id, invoice_id, number, vault_owner, vault_asset, authority, funded_amount, created_at, updated_at`

type escrowRow struct {
	ID           string
	InvoiceID    string
	Number       string
	VaultOwner   string
	VaultAsset   string
	Authority    string
	FundedAmount uint64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *escrowRow) fields() []any {
	return []any{&r.ID, &r.InvoiceID, &r.Number, &r.VaultOwner, &r.VaultAsset, &r.Authority, &r.FundedAmount, &r.CreatedAt, &r.UpdatedAt}
}

func (r *escrowRow) values() []any {
	return []any{r.ID, r.InvoiceID, r.Number, r.VaultOwner, r.VaultAsset, r.Authority, r.FundedAmount, r.CreatedAt, r.UpdatedAt}
}

func toEscrowRow(e *escrow.Escrow) *escrowRow {
	return &escrowRow{
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

func fromEscrowRow(r *escrowRow) (*escrow.Escrow, error) {
	escID, err := id.ParseEscrowID(r.ID)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseInvoiceID(r.InvoiceID)
	if err != nil {
		return nil, err
	}
	return &escrow.Escrow{
		Entity:       types.Entity{CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()},
		ID:           escID,
		InvoiceID:    invID,
		Number:       r.Number,
		Vault:        transfer.Account{Owner: types.Party(r.VaultOwner), Asset: types.Asset(r.VaultAsset)},
		Authority:    types.Party(r.Authority),
		FundedAmount: r.FundedAmount,
	}, nil
}

// ==================== Lottery pool rows ====================

const poolColumns = `id, authority, asset, total_balance, total_premiums_collected, total_payouts,
	total_entries, total_wins, house_edge_bps, min_pool_reserve_bps, max_win_pct_bps, paused,
	created_at, updated_at`

type poolRow struct {
	ID                     string
	Authority              string
	Asset                  string
	TotalBalance           uint64
	TotalPremiumsCollected uint64
	TotalPayouts           uint64
	TotalEntries           uint64
	TotalWins              uint64
	HouseEdgeBps           int32
	MinPoolReserveBps      int32
	MaxWinPctBps           int32
	Paused                 bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (r *poolRow) fields() []any {
	return []any{
		&r.ID, &r.Authority, &r.Asset, &r.TotalBalance, &r.TotalPremiumsCollected, &r.TotalPayouts,
		&r.TotalEntries, &r.TotalWins, &r.HouseEdgeBps, &r.MinPoolReserveBps, &r.MaxWinPctBps, &r.Paused,
		&r.CreatedAt, &r.UpdatedAt,
	}
}

func (r *poolRow) values() []any {
	return []any{
		r.ID, r.Authority, r.Asset, r.TotalBalance, r.TotalPremiumsCollected, r.TotalPayouts,
		r.TotalEntries, r.TotalWins, r.HouseEdgeBps, r.MinPoolReserveBps, r.MaxWinPctBps, r.Paused,
		r.CreatedAt, r.UpdatedAt,
	}
}

func toPoolRow(p *lottery.Pool) *poolRow {
	return &poolRow{
		ID:                     p.ID.String(),
		Authority:              string(p.Authority),
		Asset:                  string(p.Asset),
		TotalBalance:           p.TotalBalance,
		TotalPremiumsCollected: p.TotalPremiumsCollected,
		TotalPayouts:           p.TotalPayouts,
		TotalEntries:           p.TotalEntries,
		TotalWins:              p.TotalWins,
		HouseEdgeBps:           int32(p.HouseEdgeBps),
		MinPoolReserveBps:      int32(p.MinPoolReserveBps),
		MaxWinPctBps:           int32(p.MaxWinPctBps),
		Paused:                 p.Paused,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
}

func fromPoolRow(r *poolRow) (*lottery.Pool, error) {
	poolID, err := id.ParsePoolID(r.ID)
	if err != nil {
		return nil, err
	}
	return &lottery.Pool{
		Entity:                 types.Entity{CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()},
		ID:                     poolID,
		Authority:              types.Party(r.Authority),
		Asset:                  types.Asset(r.Asset),
		TotalBalance:           r.TotalBalance,
		TotalPremiumsCollected: r.TotalPremiumsCollected,
		TotalPayouts:           r.TotalPayouts,
		TotalEntries:           r.TotalEntries,
		TotalWins:              r.TotalWins,
		Params: lottery.Params{
			HouseEdgeBps:      uint16(r.HouseEdgeBps),
			MinPoolReserveBps: uint16(r.MinPoolReserveBps),
			MaxWinPctBps:      uint16(r.MaxWinPctBps),
		},
		Paused: r.Paused,
	}, nil
}

// ==================== Lottery entry rows ====================

const entryColumns = `id, invoice_id, participant, invoice_amount, premium_paid, win_probability_bps,
	status, random_result, resolved_at, created_at, updated_at`

type entryRow struct {
	ID                string
	InvoiceID         string
	Participant       string
	InvoiceAmount     uint64
	PremiumPaid       uint64
	WinProbabilityBps int32
	Status            string
	RandomResult      []byte
	ResolvedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (r *entryRow) fields() []any {
	return []any{
		&r.ID, &r.InvoiceID, &r.Participant, &r.InvoiceAmount, &r.PremiumPaid, &r.WinProbabilityBps,
		&r.Status, &r.RandomResult, &r.ResolvedAt, &r.CreatedAt, &r.UpdatedAt,
	}
}

func (r *entryRow) values() []any {
	return []any{
		r.ID, r.InvoiceID, r.Participant, r.InvoiceAmount, r.PremiumPaid, r.WinProbabilityBps,
		r.Status, r.RandomResult, r.ResolvedAt, r.CreatedAt, r.UpdatedAt,
	}
}

func toEntryRow(e *lottery.Entry) *entryRow {
	return &entryRow{
		ID:                e.ID.String(),
		InvoiceID:         e.InvoiceID.String(),
		Participant:       string(e.Participant),
		InvoiceAmount:     e.InvoiceAmount,
		PremiumPaid:       e.PremiumPaid,
		WinProbabilityBps: int32(e.WinProbabilityBps),
		Status:            string(e.Status),
		RandomResult:      e.RandomResult,
		ResolvedAt:        e.ResolvedAt,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func fromEntryRow(r *entryRow) (*lottery.Entry, error) {
	entryID, err := id.ParseEntryID(r.ID)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseInvoiceID(r.InvoiceID)
	if err != nil {
		return nil, err
	}
	var random []byte
	if len(r.RandomResult) > 0 {
		random = r.RandomResult
	}
	return &lottery.Entry{
		Entity:            types.Entity{CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()},
		ID:                entryID,
		InvoiceID:         invID,
		Participant:       types.Party(r.Participant),
		InvoiceAmount:     r.InvoiceAmount,
		PremiumPaid:       r.PremiumPaid,
		WinProbabilityBps: uint16(r.WinProbabilityBps),
		Status:            lottery.EntryStatus(r.Status),
		RandomResult:      random,
		ResolvedAt:        utcPtr(r.ResolvedAt),
	}, nil
}

// ==================== Profile rows ====================

const profileColumns = `id, owner, name, email, business_name, total_invoices, total_received, created_at, updated_at`

type profileRow struct {
	ID            string
	Owner         string
	Name          string
	Email         string
	BusinessName  string
	TotalInvoices uint64
	TotalReceived uint64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *profileRow) fields() []any {
	return []any{&r.ID, &r.Owner, &r.Name, &r.Email, &r.BusinessName, &r.TotalInvoices, &r.TotalReceived, &r.CreatedAt, &r.UpdatedAt}
}

func (r *profileRow) values() []any {
	return []any{r.ID, r.Owner, r.Name, r.Email, r.BusinessName, r.TotalInvoices, r.TotalReceived, r.CreatedAt, r.UpdatedAt}
}

func toProfileRow(p *profile.Profile) *profileRow {
	return &profileRow{
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

func fromProfileRow(r *profileRow) (*profile.Profile, error) {
	profileID, err := id.ParseProfileID(r.ID)
	if err != nil {
		return nil, err
	}
	return &profile.Profile{
		Entity:        types.Entity{CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()},
		ID:            profileID,
		Owner:         types.Party(r.Owner),
		Name:          r.Name,
		Email:         r.Email,
		BusinessName:  r.BusinessName,
		TotalInvoices: r.TotalInvoices,
		TotalReceived: r.TotalReceived,
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
