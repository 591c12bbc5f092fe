package api

import (
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/profile"
	"github.com/xraph/settlement/types"
)

// Handler serves the settlement engine over HTTP.
type Handler struct {
	engine *settlement.Engine
	logger *slog.Logger
}

// NewHandler creates a Handler. A nil logger discards output.
func NewHandler(engine *settlement.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{engine: engine, logger: logger}
}

// ──────────────────────────────────────────────────
// Request bodies
// ──────────────────────────────────────────────────

type MilestoneRequest struct {
	Description string `json:"description"`
	Amount      uint64 `json:"amount"`
}

type CreateInvoiceRequest struct {
	Number     string             `json:"number" binding:"required"`
	Amount     uint64             `json:"amount"`
	Asset      string             `json:"asset" binding:"required"`
	DueDate    time.Time          `json:"due_date"`
	Memo       string             `json:"memo"`
	Milestones []MilestoneRequest `json:"milestones"`
}

type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

type PayRequest struct {
	Reference string `json:"reference"`
}

type LotteryRequest struct {
	Premium uint64 `json:"premium"`
}

type SettleRequest struct {
	// Random is 32 bytes of hex-encoded randomness.
	Random string `json:"random" binding:"required"`
}

type CreatePoolRequest struct {
	Asset             string `json:"asset" binding:"required"`
	HouseEdgeBps      uint16 `json:"house_edge_bps"`
	MinPoolReserveBps uint16 `json:"min_pool_reserve_bps"`
	MaxWinPctBps      uint16 `json:"max_win_pct_bps"`
}

type CreateProfileRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	BusinessName string `json:"business_name"`
}

// ──────────────────────────────────────────────────
// Invoices
// ──────────────────────────────────────────────────

// CreateInvoice issues an invoice owned by the caller.
func (h *Handler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv := &invoice.Invoice{
		Creator: caller(c),
		Number:  req.Number,
		Amount:  req.Amount,
		Asset:   types.Asset(req.Asset),
		DueDate: req.DueDate,
		Memo:    req.Memo,
	}
	for _, m := range req.Milestones {
		inv.Milestones = append(inv.Milestones, invoice.Milestone{
			Description: m.Description,
			Amount:      m.Amount,
		})
	}

	if err := h.engine.CreateInvoice(c.Request.Context(), inv); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// ListInvoices filters by the creator, client and status query parameters.
func (h *Handler) ListInvoices(c *gin.Context) {
	limit, offset, ok := paging(c)
	if !ok {
		return
	}
	status := invoice.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status", "field": "status"})
		return
	}

	invoices, err := h.engine.ListInvoices(c.Request.Context(), invoice.ListOpts{
		Creator: types.Party(c.Query("creator")),
		Client:  types.Party(c.Query("client")),
		Status:  status,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (h *Handler) GetInvoice(c *gin.Context) {
	invID, ok := invoiceParam(c)
	if !ok {
		return
	}
	inv, err := h.engine.GetInvoice(c.Request.Context(), invID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// FundEscrow deposits the caller's funds against the invoice.
func (h *Handler) FundEscrow(c *gin.Context) {
	invID, ok := invoiceParam(c)
	if !ok {
		return
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.engine.FundEscrow(c.Request.Context(), invID, caller(c), req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handler) GetEscrow(c *gin.Context) {
	invID, ok := invoiceParam(c)
	if !ok {
		return
	}
	esc, err := h.engine.GetEscrow(c.Request.Context(), invID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, esc)
}

func (h *Handler) ReleaseMilestone(c *gin.Context) {
	invID, ok := invoiceParam(c)
	if !ok {
		return
	}
	inv, err := h.engine.ReleaseMilestone(c.Request.Context(), invID, caller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// MarkPaid records that the caller paid the invoice off-ledger. No funds
// move; the optional body carries the external payment reference.
func (h *Handler) MarkPaid(c *gin.Context) {
	invID, ok := invoiceParam(c)
	if !ok {
		return
	}
	var req PayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	inv, err := h.engine.MarkPaid(c.Request.Context(), invID, caller(c), req.Reference)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handler) CancelInvoice(c *gin.Context) {
	invID, ok := invoiceParam(c)
	if !ok {
		return
	}
	inv, err := h.engine.CancelInvoice(c.Request.Context(), invID, caller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// ──────────────────────────────────────────────────
// Lottery
// ──────────────────────────────────────────────────

// PayWithLottery enters the caller into the lottery for the invoice.
func (h *Handler) PayWithLottery(c *gin.Context) {
	invID, ok := invoiceParam(c)
	if !ok {
		return
	}
	var req LotteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.engine.PayWithLottery(c.Request.Context(), invID, caller(c), req.Premium)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) GetEntry(c *gin.Context) {
	invID, ok := invoiceParam(c)
	if !ok {
		return
	}
	entry, err := h.engine.GetEntry(c.Request.Context(), invID, types.Party(c.Param("participant")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// SettleLottery resolves an entry with caller-supplied randomness.
func (h *Handler) SettleLottery(c *gin.Context) {
	invID, ok := invoiceParam(c)
	if !ok {
		return
	}
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raw, err := hex.DecodeString(req.Random)
	if err != nil || len(raw) != 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "random must be 32 hex-encoded bytes", "field": "random"})
		return
	}
	var random [32]byte
	copy(random[:], raw)

	entry, err := h.engine.SettleLottery(c.Request.Context(), invID, types.Party(c.Param("participant")), random)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// CreatePool opens a lottery pool with the caller as authority.
func (h *Handler) CreatePool(c *gin.Context) {
	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pool, err := h.engine.InitializeLotteryPool(c.Request.Context(), caller(c), types.Asset(req.Asset), lottery.Params{
		HouseEdgeBps:      req.HouseEdgeBps,
		MinPoolReserveBps: req.MinPoolReserveBps,
		MaxWinPctBps:      req.MaxWinPctBps,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pool)
}

func (h *Handler) ListPools(c *gin.Context) {
	pools, err := h.engine.ListPools(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pools": pools})
}

func (h *Handler) GetPool(c *gin.Context) {
	pool, err := h.engine.GetPool(c.Request.Context(), types.Asset(c.Param("asset")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pool)
}

// SeedPool moves the caller's funds into the pool.
func (h *Handler) SeedPool(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pool, err := h.engine.SeedLotteryPool(c.Request.Context(), types.Asset(c.Param("asset")), caller(c), req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pool)
}

func (h *Handler) TogglePool(c *gin.Context) {
	pool, err := h.engine.TogglePool(c.Request.Context(), types.Asset(c.Param("asset")), caller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pool)
}

// ──────────────────────────────────────────────────
// Profiles
// ──────────────────────────────────────────────────

func (h *Handler) CreateProfile(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := &profile.Profile{
		Owner:        caller(c),
		Name:         req.Name,
		Email:        req.Email,
		BusinessName: req.BusinessName,
	}
	if err := h.engine.CreateProfile(c.Request.Context(), p); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.engine.GetProfile(c.Request.Context(), types.Party(c.Param("owner")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func invoiceParam(c *gin.Context) (id.InvoiceID, bool) {
	invID, err := id.ParseInvoiceID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id", "field": "id"})
		return id.InvoiceID{}, false
	}
	return invID, true
}

func paging(c *gin.Context) (limit, offset int, ok bool) {
	for _, q := range []struct {
		name string
		dst  *int
	}{{"limit", &limit}, {"offset", &offset}} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "must be a non-negative integer", "field": q.name})
			return 0, 0, false
		}
		*q.dst = n
	}
	return limit, offset, true
}
