package http

import (
	"log/slog"
	"net/http"

	"faucet-backend/internal/usecase/whitelist"

	"github.com/labstack/echo/v4"
)

type WhitelistHandler struct {
	uc  *whitelist.Usecase
	log *slog.Logger
}

func NewWhitelistHandler(uc *whitelist.Usecase, log *slog.Logger) *WhitelistHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WhitelistHandler{uc: uc, log: log}
}

type setWhitelistReq struct {
	Account string `json:"account" validate:"required,eth_addr"`
	// pointer so that an explicit false passes "required"
	IsWhitelisted *bool  `json:"isWhitelisted" validate:"required"`
	Email         string `json:"email" validate:"omitempty,email"`
}

func (h *WhitelistHandler) SetWhitelist(c echo.Context) error {
	var req setWhitelistReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	dto, err := h.uc.SetWhitelist(c.Request().Context(), whitelist.SetInput{
		Address:     req.Account,
		Whitelisted: *req.IsWhitelisted,
		Email:       req.Email,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"message":         "Whitelist updated for account " + dto.Address + ".",
		"transactionHash": dto.TxHash,
		"isWhitelisted":   dto.Whitelisted,
	})
}

type whitelistStatusReq struct {
	Account string `json:"account" query:"account"`
	Email   string `json:"email" query:"email"`
}

func (h *WhitelistHandler) Status(c echo.Context) error {
	var req whitelistStatusReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	addr := field(c, req.Account, "account")
	if addr == "" {
		return fail(c, http.StatusBadRequest, CodeValidation, "account is required")
	}
	dto, err := h.uc.Status(c.Request().Context(), field(c, req.Email, "email"), addr)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"isWhitelisted": dto.Whitelisted})
}
