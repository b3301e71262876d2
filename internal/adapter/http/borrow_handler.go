package http

import (
	"log/slog"
	"net/http"

	"faucet-backend/internal/usecase/borrow"

	"github.com/labstack/echo/v4"
)

type BorrowHandler struct {
	uc  *borrow.Usecase
	log *slog.Logger
}

func NewBorrowHandler(uc *borrow.Usecase, log *slog.Logger) *BorrowHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BorrowHandler{uc: uc, log: log}
}

type borrowReq struct {
	Account string `json:"account" validate:"required,eth_addr"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (h *BorrowHandler) Borrow(c echo.Context) error {
	var req borrowReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	dto, err := h.uc.Borrow(c.Request().Context(), borrow.BorrowInput{Address: req.Account, Email: req.Email})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"message":         "Successfully borrowed from the faucet.",
		"transactionHash": dto.TxHash,
		"balance":         dto.Balance,
		"amount":          dto.Amount,
		"borrowedAt":      dto.BorrowedAt,
		"accountId":       dto.AccountID,
	})
}

type lastBorrowedReq struct {
	Email   string `query:"email" validate:"omitempty,email"`
	Account string `query:"account" validate:"omitempty,eth_addr"`
}

// LastBorrowed answers with a null timestamp for an account that never borrowed.
func (h *BorrowHandler) LastBorrowed(c echo.Context) error {
	var req lastBorrowedReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if req.Email == "" && req.Account == "" {
		return fail(c, http.StatusBadRequest, CodeValidation, "email or account is required")
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	at, err := h.uc.LastBorrowed(c.Request().Context(), req.Email, req.Account)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":               true,
		"lastBorrowedTimestamp": at,
	})
}
