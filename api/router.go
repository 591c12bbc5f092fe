package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/settlement"
)

// Register mounts the settlement routes on rg. Every route requires a bearer
// token signed with secret.
func Register(rg *gin.RouterGroup, h *Handler, secret string) {
	v1 := rg.Group("/v1")
	v1.Use(JWTAuth(secret))

	invoices := v1.Group("/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/:id", h.GetInvoice)
		invoices.POST("/:id/escrow", h.FundEscrow)
		invoices.GET("/:id/escrow", h.GetEscrow)
		invoices.POST("/:id/milestones/release", h.ReleaseMilestone)
		invoices.POST("/:id/pay", h.MarkPaid)
		invoices.POST("/:id/cancel", h.CancelInvoice)
		invoices.POST("/:id/lottery", h.PayWithLottery)
		invoices.GET("/:id/lottery/:participant", h.GetEntry)
		invoices.POST("/:id/lottery/:participant/settle", RequireRole(RoleSettler), h.SettleLottery)
	}

	pools := v1.Group("/pools")
	{
		pools.POST("", h.CreatePool)
		pools.GET("", h.ListPools)
		pools.GET("/:asset", h.GetPool)
		pools.POST("/:asset/seed", h.SeedPool)
		pools.POST("/:asset/toggle", h.TogglePool)
	}

	profiles := v1.Group("/profiles")
	{
		profiles.POST("", h.CreateProfile)
		profiles.GET("/:owner", h.GetProfile)
	}
}

// NewRouter returns a gin engine serving the settlement API.
func NewRouter(engine *settlement.Engine, secret string, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	Register(&r.RouterGroup, NewHandler(engine, logger), secret)
	return r
}
