// Package memory is an in-process treasury that enforces the same rules as
// the deployed contract. It backs LEDGER_DRIVER=memory and the coordinator tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"faucet-backend/internal/domain/eligibility"
	"faucet-backend/internal/domain/ledger"
	"faucet-backend/pkg/id"

	"github.com/shopspring/decimal"
)

var _ ledger.Gateway = (*Ledger)(nil)

const (
	DefaultOwner    = "0x00000000000000000000000000000000000000aa"
	DefaultTreasury = "0x00000000000000000000000000000000000000fe"
)

// Ledger keeps every balance in memory. The submitting key is the signer; the
// contract owner is fixed at construction.
type Ledger struct {
	mu sync.Mutex

	owner    string
	signer   string
	treasury string

	balances     map[string]decimal.Decimal
	whitelisted  map[string]bool
	lastBorrowed map[string]time.Time
	block        uint64

	initialTreasury decimal.Decimal
	latency         time.Duration
	confirmTimeout  time.Duration
	now             func() time.Time
}

type Option func(*Ledger)

func WithOwner(addr string) Option    { return func(l *Ledger) { l.owner = strings.ToLower(addr) } }
func WithSigner(addr string) Option   { return func(l *Ledger) { l.signer = strings.ToLower(addr) } }
func WithTreasury(addr string) Option { return func(l *Ledger) { l.treasury = strings.ToLower(addr) } }

// WithLatency delays every submission before it is mined.
func WithLatency(d time.Duration) Option { return func(l *Ledger) { l.latency = d } }

// WithConfirmTimeout bounds the wait for a submission; latency beyond it
// reports a timeout.
func WithConfirmTimeout(d time.Duration) Option { return func(l *Ledger) { l.confirmTimeout = d } }

func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

func WithTreasuryBalance(amount decimal.Decimal) Option {
	return func(l *Ledger) { l.initialTreasury = amount }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		owner:          DefaultOwner,
		treasury:       DefaultTreasury,
		balances:       map[string]decimal.Decimal{},
		whitelisted:    map[string]bool{},
		lastBorrowed:   map[string]time.Time{},
		confirmTimeout: 2 * time.Minute,
		now:            time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	if l.signer == "" {
		l.signer = l.owner
	}
	l.balances[l.treasury] = l.initialTreasury
	return l
}

// SetBalance overrides the native balance of addr.
func (l *Ledger) SetBalance(addr string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[strings.ToLower(addr)] = amount
}

func (l *Ledger) Owner() string    { return l.owner }
func (l *Ledger) Treasury() string { return l.treasury }

// mine waits out the configured latency, then applies fn under the lock.
// A wait beyond the confirmation bound still applies fn but reports a timeout.
func (l *Ledger) mine(ctx context.Context, op ledger.Op, fn func() error) (*ledger.Receipt, error) {
	hash := id.NewTxHash()
	timedOut := false
	if l.latency > 0 {
		wait := l.latency
		if l.confirmTimeout > 0 && wait > l.confirmTimeout {
			wait = l.confirmTimeout
			timedOut = true
		}
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			timedOut = true
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := fn(); err != nil {
		return nil, err
	}
	l.block++
	if timedOut {
		return nil, ledger.TimedOut(op, hash)
	}
	return &ledger.Receipt{
		TxHash:      hash,
		From:        l.signer,
		Block:       l.block,
		ConfirmedAt: l.now().UTC(),
	}, nil
}

func (l *Ledger) SubmitBorrow(ctx context.Context, address string) (*ledger.Receipt, error) {
	addr := strings.ToLower(address)
	return l.mine(ctx, ledger.OpBorrow, func() error {
		if !l.whitelisted[addr] {
			return ledger.Rejected(ledger.OpBorrow, "Not a whitelisted account")
		}
		if last, ok := l.lastBorrowed[addr]; ok && l.now().Sub(last) < eligibility.Cooldown {
			return ledger.Rejected(ledger.OpBorrow, "Wait 8 hours before borrowing again")
		}
		if l.balances[l.treasury].LessThan(eligibility.BorrowAmount) {
			return ledger.Rejected(ledger.OpBorrow, "Insufficient balance")
		}
		l.balances[l.treasury] = l.balances[l.treasury].Sub(eligibility.BorrowAmount)
		l.balances[addr] = l.balances[addr].Add(eligibility.BorrowAmount)
		l.lastBorrowed[addr] = l.now()
		return nil
	})
}

// SubmitLend sends amount from the signer into the treasury. The signer's own
// balance is not tracked.
func (l *Ledger) SubmitLend(ctx context.Context, _ string, amount decimal.Decimal) (*ledger.Receipt, error) {
	return l.mine(ctx, ledger.OpLend, func() error {
		if !amount.IsPositive() {
			return ledger.Rejected(ledger.OpLend, "Lend amount must be greater than zero")
		}
		l.balances[l.treasury] = l.balances[l.treasury].Add(amount)
		return nil
	})
}

func (l *Ledger) SubmitWithdraw(ctx context.Context, amount decimal.Decimal) (*ledger.Receipt, error) {
	return l.mine(ctx, ledger.OpWithdraw, func() error {
		if l.signer != l.owner {
			return ledger.Rejected(ledger.OpWithdraw, "Ownable: caller is not the owner")
		}
		if l.balances[l.treasury].LessThan(amount) {
			return ledger.Rejected(ledger.OpWithdraw, "Insufficient balance")
		}
		l.balances[l.treasury] = l.balances[l.treasury].Sub(amount)
		l.balances[l.owner] = l.balances[l.owner].Add(amount)
		return nil
	})
}

func (l *Ledger) SetWhitelisted(ctx context.Context, address string, whitelisted bool) (*ledger.Receipt, error) {
	addr := strings.ToLower(address)
	return l.mine(ctx, ledger.OpSetWhitelist, func() error {
		if l.signer != l.owner {
			return ledger.Rejected(ledger.OpSetWhitelist, "Ownable: caller is not the owner")
		}
		l.whitelisted[addr] = whitelisted
		return nil
	})
}

func (l *Ledger) IsWhitelisted(_ context.Context, address string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.whitelisted[strings.ToLower(address)], nil
}

func (l *Ledger) GetBalance(_ context.Context, address string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[strings.ToLower(address)], nil
}

func (l *Ledger) IsOwnerAddress(_ context.Context, address string) (bool, error) {
	return strings.EqualFold(address, l.owner), nil
}
