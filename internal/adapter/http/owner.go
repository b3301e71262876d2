package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"faucet-backend/internal/adapter/middleware"
	"faucet-backend/internal/domain/account"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"
)

const (
	// HeaderSignature carries a 65-byte personal_sign (EIP-191) signature, 0x-hex.
	HeaderSignature = "X-Caller-Signature"
	// HeaderSignedAt is the unix time (seconds) embedded in the signed message.
	HeaderSignedAt = "X-Caller-Signed-At"

	// Signed messages older or newer than this are refused.
	maxSignatureAge = 5 * time.Minute
)

// OwnerChecker reports whether address is the treasury owner.
type OwnerChecker interface {
	IsOwner(ctx context.Context, address string) (bool, error)
}

const ctxCaller = "caller_address"

var errBadSignature = errors.New("invalid signature")

// OwnerMessage is the text an owner signs to authorize one request. It binds
// the method, the path and the signing time.
func OwnerMessage(method, path string, signedAt int64) string {
	return fmt.Sprintf("faucet owner request\n%s %s\n%d", strings.ToUpper(method), path, signedAt)
}

// recoverSigner returns the lower-cased address that produced sig over msg.
func recoverSigner(msg, sigHex string) (string, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil || len(sig) != crypto.SignatureLength {
		return "", errBadSignature
	}
	// wallets report v as 27/28
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(msg)), sig)
	if err != nil {
		return "", errBadSignature
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// OwnerGate admits only requests signed by the treasury owner. The signer is
// recovered from X-Caller-Signature over OwnerMessage and must match
// X-Caller-Address; the ledger then confirms it owns the treasury. The
// normalized caller is stored under "caller_address".
func OwnerGate(owners OwnerChecker, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			raw := req.Header.Get(middleware.HeaderCaller)
			if raw == "" {
				return fail(c, http.StatusUnauthorized, CodeUnauthorized, "missing "+middleware.HeaderCaller)
			}
			claimed, err := account.NormalizeAddress(raw)
			if err != nil {
				return fail(c, http.StatusUnauthorized, CodeUnauthorized, "invalid "+middleware.HeaderCaller)
			}

			sig := req.Header.Get(HeaderSignature)
			if sig == "" {
				return fail(c, http.StatusUnauthorized, CodeUnauthorized, "missing "+HeaderSignature)
			}
			signedAt, err := strconv.ParseInt(req.Header.Get(HeaderSignedAt), 10, 64)
			if err != nil {
				return fail(c, http.StatusUnauthorized, CodeUnauthorized, "invalid "+HeaderSignedAt)
			}
			if age := time.Since(time.Unix(signedAt, 0)); age > maxSignatureAge || age < -maxSignatureAge {
				return fail(c, http.StatusUnauthorized, CodeUnauthorized, "signature expired")
			}

			signer, err := recoverSigner(OwnerMessage(req.Method, req.URL.Path, signedAt), sig)
			if err != nil {
				return fail(c, http.StatusUnauthorized, CodeUnauthorized, err.Error())
			}
			if signer != claimed {
				log.Warn("owner gate signer mismatch", "caller", claimed, "signer", signer, "path", c.Path())
				return fail(c, http.StatusUnauthorized, CodeUnauthorized, "signature does not match "+middleware.HeaderCaller)
			}

			ok, err := owners.IsOwner(req.Context(), signer)
			if err != nil {
				return writeError(c, log, err)
			}
			if !ok {
				log.Warn("owner gate refused caller", "caller", signer, "path", c.Path())
				return fail(c, http.StatusForbidden, CodeNotOwner, "caller is not the treasury owner")
			}
			c.Set(ctxCaller, signer)
			return next(c)
		}
	}
}
