package ledgermock

import (
	"context"
	"errors"
	"sync"

	"faucet-backend/internal/domain/ledger"

	"github.com/shopspring/decimal"
)

var _ ledger.Gateway = (*Gateway)(nil)

var errUnimplemented = errors.New("ledgermock: method not implemented")

// Gateway is a function-backed mock that satisfies ledger.Gateway.
// Unfilled submit methods return errUnimplemented; Calls counts every call by method name.
type Gateway struct {
	SubmitBorrowFn   func(ctx context.Context, address string) (*ledger.Receipt, error)
	SubmitLendFn     func(ctx context.Context, address string, amount decimal.Decimal) (*ledger.Receipt, error)
	SubmitWithdrawFn func(ctx context.Context, amount decimal.Decimal) (*ledger.Receipt, error)
	SetWhitelistedFn func(ctx context.Context, address string, whitelisted bool) (*ledger.Receipt, error)
	IsWhitelistedFn  func(ctx context.Context, address string) (bool, error)
	GetBalanceFn     func(ctx context.Context, address string) (decimal.Decimal, error)
	IsOwnerAddressFn func(ctx context.Context, address string) (bool, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *Gateway) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[name]++
}

// Calls returns how many times method name was invoked.
func (m *Gateway) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *Gateway) SubmitBorrow(ctx context.Context, address string) (*ledger.Receipt, error) {
	m.record("SubmitBorrow")
	if m.SubmitBorrowFn != nil {
		return m.SubmitBorrowFn(ctx, address)
	}
	return nil, errUnimplemented
}

func (m *Gateway) SubmitLend(ctx context.Context, address string, amount decimal.Decimal) (*ledger.Receipt, error) {
	m.record("SubmitLend")
	if m.SubmitLendFn != nil {
		return m.SubmitLendFn(ctx, address, amount)
	}
	return nil, errUnimplemented
}

func (m *Gateway) SubmitWithdraw(ctx context.Context, amount decimal.Decimal) (*ledger.Receipt, error) {
	m.record("SubmitWithdraw")
	if m.SubmitWithdrawFn != nil {
		return m.SubmitWithdrawFn(ctx, amount)
	}
	return nil, errUnimplemented
}

func (m *Gateway) SetWhitelisted(ctx context.Context, address string, whitelisted bool) (*ledger.Receipt, error) {
	m.record("SetWhitelisted")
	if m.SetWhitelistedFn != nil {
		return m.SetWhitelistedFn(ctx, address, whitelisted)
	}
	return nil, errUnimplemented
}

func (m *Gateway) IsWhitelisted(ctx context.Context, address string) (bool, error) {
	m.record("IsWhitelisted")
	if m.IsWhitelistedFn != nil {
		return m.IsWhitelistedFn(ctx, address)
	}
	return false, errUnimplemented
}

// GetBalance defaults to a zero balance.
func (m *Gateway) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	m.record("GetBalance")
	if m.GetBalanceFn != nil {
		return m.GetBalanceFn(ctx, address)
	}
	return decimal.Zero, nil
}

func (m *Gateway) IsOwnerAddress(ctx context.Context, address string) (bool, error) {
	m.record("IsOwnerAddress")
	if m.IsOwnerAddressFn != nil {
		return m.IsOwnerAddressFn(ctx, address)
	}
	return false, errUnimplemented
}
