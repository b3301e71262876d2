package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	lockAdapter "faucet-backend/internal/adapter/lock"
	"faucet-backend/internal/adapter/ledger/memory"
	"faucet-backend/internal/adapter/middleware"
	repo "faucet-backend/internal/adapter/repository/mysql"
	"faucet-backend/internal/domain/ledger"
	"faucet-backend/internal/testutil/dbtest"
	"faucet-backend/internal/usecase/borrow"
	"faucet-backend/internal/usecase/registry"
	"faucet-backend/internal/usecase/treasury"
	"faucet-backend/internal/usecase/whitelist"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const borrower = "0x1111111111111111111111111111111111111111"

var (
	ownerKey = mustKey("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	owner    = strings.ToLower(crypto.PubkeyToAddress(ownerKey.PublicKey).Hex())
	otherKey = mustKey("8da4ef21b864d2cc526dbdb2a120bd2874c36c9d0a1fb7f8c63d7f7a8b41de8f")
)

func mustKey(hex string) *ecdsa.PrivateKey {
	k, err := crypto.HexToECDSA(hex)
	if err != nil {
		panic(err)
	}
	return k
}

// signedHeaders signs the owner message for method+path at signedAt with key,
// the way a wallet's personal_sign does, and claims caller as the sender.
func signedHeaders(key *ecdsa.PrivateKey, caller, method, path string, signedAt time.Time) map[string]string {
	msg := OwnerMessage(method, path, signedAt.Unix())
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	if err != nil {
		panic(err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return map[string]string{
		middleware.HeaderCaller: caller,
		HeaderSignature:         hexutil.Encode(sig),
		HeaderSignedAt:          strconv.FormatInt(signedAt.Unix(), 10),
	}
}

func asOwner(method, path string) map[string]string {
	return signedHeaders(ownerKey, owner, method, path, time.Now())
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func newEchoWithValidator() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	return e
}

func mustJSON(v any) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type server struct {
	e      *echo.Echo
	ledger *memory.Ledger
	clock  *clock
}

// newRoutes builds every handler on a sqlite db and a memory ledger holding
// 10 in the treasury. gw, when set, replaces the memory ledger.
func newRoutes(t *testing.T, gw ledger.Gateway) (Routes, *memory.Ledger, *clock) {
	t.Helper()
	db := dbtest.Open(t)
	c := &clock{t: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)}
	mem := memory.New(memory.WithOwner(owner), memory.WithTreasuryBalance(decimal.NewFromInt(10)), memory.WithClock(c.Now))
	if gw == nil {
		gw = mem
	}

	accs := repo.NewAccountRepository(db)
	txs := repo.NewTransactionRepository(db)
	tx := repo.NewGormUoW(db)
	locker := lockAdapter.NewLocal()
	reg := registry.NewUsecase(accs, true, nil)

	bu := borrow.NewUsecase(borrow.Deps{
		Registry: reg, Accounts: accs, Transactions: txs, UoW: tx, Gateway: gw, Locker: locker,
	}, borrow.WithClock(c.Now))
	wu := whitelist.NewUsecase(whitelist.Deps{
		Registry: reg, Whitelist: repo.NewWhitelistRepository(db), Transactions: txs, UoW: tx, Gateway: gw, Locker: locker,
	})
	tu := treasury.NewUsecase(treasury.Deps{
		Registry: reg, Transactions: txs, UoW: tx, Gateway: gw, Locker: locker, TreasuryAddress: mem.Treasury(),
	})

	return Routes{
		Prefix:    "/api",
		Borrow:    NewBorrowHandler(bu, nil),
		Whitelist: NewWhitelistHandler(wu, nil),
		Treasury:  NewTreasuryHandler(tu, nil),
		Owners:    tu,
	}, mem, c
}

// newServer mounts the whole API with the owner gate on, plus /health.
func newServer(t *testing.T, gw ledger.Gateway) *server {
	t.Helper()
	routes, mem, c := newRoutes(t, gw)
	e := newEchoWithValidator()
	e.GET("/health", NewHandler().Health)
	Register(e, routes)
	return &server{e: e, ledger: mem, clock: c}
}

func (s *server) do(t *testing.T, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = mustJSON(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *server) whitelist(t *testing.T, addr string) {
	t.Helper()
	if _, err := s.ledger.SetWhitelisted(context.Background(), addr, true); err != nil {
		t.Fatalf("whitelist %s: %v", addr, err)
	}
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
	}
	return m
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
	}
	return er
}
