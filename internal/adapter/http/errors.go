package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"faucet-backend/internal/domain/account"
	"faucet-backend/internal/domain/eligibility"
	"faucet-backend/internal/domain/ledger"
	"faucet-backend/internal/domain/lock"
	"faucet-backend/internal/domain/transaction"
	"faucet-backend/internal/usecase/treasury"

	"github.com/labstack/echo/v4"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnknownAccount    = "UNKNOWN_ACCOUNT"
	CodeConflict          = "CONFLICT"
	CodeLedgerRejected    = "LEDGER_REJECTED"
	CodeLedgerTimeout     = "LEDGER_TIMEOUT"
	CodeLedgerUnavailable = "LEDGER_UNAVAILABLE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeNotOwner          = "NOT_OWNER"
	CodeBusy              = "BUSY"
	CodeStorage           = "STORAGE_ERROR"
)

func fail(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, ErrorResponse{Code: code, Message: msg})
}

func invalidBody(c echo.Context) error {
	return fail(c, http.StatusBadRequest, CodeValidation, "invalid body")
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Code:    CodeValidation,
		Message: "validation failed",
		Details: ToFieldErrors(err),
	})
}

// writeError maps usecase errors onto status codes. Anything unrecognised is
// logged and reported as a storage failure.
func writeError(c echo.Context, log *slog.Logger, err error) error {
	var denied *eligibility.DeniedError
	if errors.As(err, &denied) {
		return writeDenied(c, denied)
	}

	switch {
	case errors.Is(err, account.ErrInvalidAddress),
		errors.Is(err, account.ErrInvalidKey),
		errors.Is(err, transaction.ErrInvalidAmount):
		return fail(c, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, account.ErrUnknownAccount), errors.Is(err, account.ErrNotFound):
		return fail(c, http.StatusNotFound, CodeUnknownAccount, "account not found")
	case errors.Is(err, account.ErrConflict):
		return fail(c, http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, ledger.ErrRejected):
		return fail(c, http.StatusUnprocessableEntity, CodeLedgerRejected, err.Error())
	case errors.Is(err, ledger.ErrTimeout):
		msg := "ledger did not confirm in time; the outcome is unknown"
		if h := ledger.TxHashOf(err); h != "" {
			msg += " (transaction " + h + ")"
		}
		return fail(c, http.StatusGatewayTimeout, CodeLedgerTimeout, msg)
	case errors.Is(err, ledger.ErrUnavailable):
		return fail(c, http.StatusBadGateway, CodeLedgerUnavailable, "ledger unavailable")
	case errors.Is(err, lock.ErrNotAcquired):
		return fail(c, http.StatusServiceUnavailable, CodeBusy, "another request for this account is in progress")
	case errors.Is(err, treasury.ErrTreasuryNotConfigured):
		return fail(c, http.StatusInternalServerError, CodeStorage, "server configuration is incomplete")
	}

	log.Error("request failed", "path", c.Path(), "err", err)
	return fail(c, http.StatusInternalServerError, CodeStorage, "internal error")
}

func writeDenied(c echo.Context, d *eligibility.DeniedError) error {
	switch d.Decision.Reason {
	case eligibility.ReasonCooldownActive:
		return c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Code:       string(d.Decision.Reason),
			Message:    capitalize(d.Error()) + ".",
			RetryAfter: d.Decision.RetryAfter,
		})
	default:
		return fail(c, http.StatusBadRequest, string(d.Decision.Reason), capitalize(d.Error())+".")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
