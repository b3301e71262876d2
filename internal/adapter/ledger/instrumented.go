// Package ledger holds the LedgerGateway implementations and the metrics
// decorator wrapped around whichever one is configured.
package ledger

import (
	"context"
	"errors"
	"time"

	ledgerDomain "faucet-backend/internal/domain/ledger"
	"faucet-backend/pkg/metrics"

	"github.com/shopspring/decimal"
)

var _ ledgerDomain.Gateway = (*Instrumented)(nil)

// Instrumented records a call counter and a latency histogram per operation.
type Instrumented struct {
	next    ledgerDomain.Gateway
	metrics *metrics.MetricsCollector
}

func NewInstrumented(next ledgerDomain.Gateway, m *metrics.MetricsCollector) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ledgerDomain.ErrRejected):
		return "rejected"
	case errors.Is(err, ledgerDomain.ErrTimeout):
		return "timeout"
	case errors.Is(err, ledgerDomain.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// track must be deferred with a pointer to the named error result.
func (g *Instrumented) track(op string, start time.Time, err *error) {
	g.metrics.RecordLedgerCall(op, outcome(*err), time.Since(start))
}

func (g *Instrumented) SubmitBorrow(ctx context.Context, address string) (_ *ledgerDomain.Receipt, err error) {
	defer g.track(string(ledgerDomain.OpBorrow), time.Now(), &err)
	return g.next.SubmitBorrow(ctx, address)
}

func (g *Instrumented) SubmitLend(ctx context.Context, address string, amount decimal.Decimal) (_ *ledgerDomain.Receipt, err error) {
	defer g.track(string(ledgerDomain.OpLend), time.Now(), &err)
	return g.next.SubmitLend(ctx, address, amount)
}

func (g *Instrumented) SubmitWithdraw(ctx context.Context, amount decimal.Decimal) (_ *ledgerDomain.Receipt, err error) {
	defer g.track(string(ledgerDomain.OpWithdraw), time.Now(), &err)
	return g.next.SubmitWithdraw(ctx, amount)
}

func (g *Instrumented) SetWhitelisted(ctx context.Context, address string, whitelisted bool) (_ *ledgerDomain.Receipt, err error) {
	defer g.track(string(ledgerDomain.OpSetWhitelist), time.Now(), &err)
	return g.next.SetWhitelisted(ctx, address, whitelisted)
}

func (g *Instrumented) IsWhitelisted(ctx context.Context, address string) (_ bool, err error) {
	defer g.track("is_whitelisted", time.Now(), &err)
	return g.next.IsWhitelisted(ctx, address)
}

func (g *Instrumented) GetBalance(ctx context.Context, address string) (_ decimal.Decimal, err error) {
	defer g.track("get_balance", time.Now(), &err)
	return g.next.GetBalance(ctx, address)
}

func (g *Instrumented) IsOwnerAddress(ctx context.Context, address string) (_ bool, err error) {
	defer g.track("is_owner", time.Now(), &err)
	return g.next.IsOwnerAddress(ctx, address)
}
