package http

import (
	"log/slog"
	"net/http"

	"faucet-backend/internal/usecase/treasury"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type TreasuryHandler struct {
	uc  *treasury.Usecase
	log *slog.Logger
}

func NewTreasuryHandler(uc *treasury.Usecase, log *slog.Logger) *TreasuryHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TreasuryHandler{uc: uc, log: log}
}

type lendReq struct {
	UserAddress string          `json:"userAddress" validate:"required,eth_addr"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
}

func (h *TreasuryHandler) Lend(c echo.Context) error {
	var req lendReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	dto, err := h.uc.Lend(c.Request().Context(), treasury.LendInput{Address: req.UserAddress, Amount: req.Amount})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"message":         "Successfully lent to the faucet.",
		"transactionHash": dto.TxHash,
	})
}

type withdrawReq struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

func (h *TreasuryHandler) Withdraw(c echo.Context) error {
	var req withdrawReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	dto, err := h.uc.Withdraw(c.Request().Context(), req.Amount)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"message":         "Successfully withdrawn funds.",
		"transactionHash": dto.TxHash,
	})
}

type addressReq struct {
	Account     string `json:"account" query:"account"`
	UserAddress string `json:"userAddress" query:"userAddress"`
}

func (h *TreasuryHandler) WalletBalance(c echo.Context) error {
	var req addressReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	addr := field(c, req.Account, "account")
	if addr == "" {
		return fail(c, http.StatusBadRequest, CodeValidation, "Wallet address is required.")
	}
	bal, err := h.uc.WalletBalance(c.Request().Context(), addr)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"balance": bal,
		"message": "Wallet balance fetched successfully.",
	})
}

func (h *TreasuryHandler) TreasuryBalance(c echo.Context) error {
	bal, err := h.uc.TreasuryBalance(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"treasuryBalance": bal})
}

func (h *TreasuryHandler) IsOwner(c echo.Context) error {
	var req addressReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	addr := field(c, req.UserAddress, "userAddress")
	if addr == "" {
		return fail(c, http.StatusBadRequest, CodeValidation, "userAddress is required")
	}
	ok, err := h.uc.IsOwner(c.Request().Context(), addr)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"isOwner": ok})
}

// Transactions lists the recorded audit trail, newest first.
func (h *TreasuryHandler) Transactions(c echo.Context) error {
	limit, ok := intQuery(c, "limit", defaultHistoryLimit)
	if !ok {
		return fail(c, http.StatusBadRequest, CodeValidation, "limit must be a non-negative integer")
	}
	offset, ok := intQuery(c, "offset", 0)
	if !ok {
		return fail(c, http.StatusBadRequest, CodeValidation, "offset must be a non-negative integer")
	}
	recs, err := h.uc.History(c.Request().Context(), c.QueryParam("account"), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "transactions": recs})
}

// Unconfirmed lists submissions that timed out and await reconciliation.
func (h *TreasuryHandler) Unconfirmed(c echo.Context) error {
	limit, ok := intQuery(c, "limit", defaultHistoryLimit)
	if !ok {
		return fail(c, http.StatusBadRequest, CodeValidation, "limit must be a non-negative integer")
	}
	items, err := h.uc.Unconfirmed(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "unconfirmed": items})
}
