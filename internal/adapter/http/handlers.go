package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Routes groups everything mounted under the API prefix.
type Routes struct {
	Prefix    string
	Borrow    *BorrowHandler
	Whitelist *WhitelistHandler
	Treasury  *TreasuryHandler
	// Owners backs the owner gate; nil disables it.
	Owners OwnerChecker
	// Mutating applies to every POST route, e.g. idempotency.
	Mutating []echo.MiddlewareFunc
	Logger   *slog.Logger
}

// Register mounts the faucet API on e.
func Register(e *echo.Echo, r Routes) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	g := e.Group(r.Prefix)

	gated := r.Mutating
	if r.Owners != nil {
		gated = append([]echo.MiddlewareFunc{OwnerGate(r.Owners, log)}, r.Mutating...)
	}
	readOwner := []echo.MiddlewareFunc{}
	if r.Owners != nil {
		readOwner = append(readOwner, OwnerGate(r.Owners, log))
	}

	g.POST("/borrow", r.Borrow.Borrow, r.Mutating...)
	g.GET("/lastBorrowed", r.Borrow.LastBorrowed)

	g.POST("/whitelist", r.Whitelist.SetWhitelist, gated...)
	g.GET("/isWhitelisted", r.Whitelist.Status)
	g.POST("/isWhitelisted", r.Whitelist.Status)

	g.POST("/lend", r.Treasury.Lend, r.Mutating...)
	g.POST("/withdraw", r.Treasury.Withdraw, gated...)
	g.GET("/balance/walletAddress", r.Treasury.WalletBalance)
	g.POST("/balance/walletAddress", r.Treasury.WalletBalance)
	g.GET("/balance/treasury", r.Treasury.TreasuryBalance)
	g.GET("/isOwner", r.Treasury.IsOwner)
	g.POST("/isOwner", r.Treasury.IsOwner)
	g.GET("/transactions", r.Treasury.Transactions)
	g.GET("/transactions/unconfirmed", r.Treasury.Unconfirmed, readOwner...)
}
