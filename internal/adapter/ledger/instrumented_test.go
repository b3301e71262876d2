package ledger

import (
	"context"
	"errors"
	"testing"

	"faucet-backend/internal/adapter/ledger/memory"
	ledgerDomain "faucet-backend/internal/domain/ledger"
	"faucet-backend/internal/testutil/ledgermock"
	"faucet-backend/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ledgerDomain.Rejected(ledgerDomain.OpBorrow, "x"), "rejected"},
		{ledgerDomain.TimedOut(ledgerDomain.OpBorrow, "0x1"), "timeout"},
		{ledgerDomain.ErrUnavailable, "unavailable"},
		{errors.New("other"), "error"},
	}
	for _, tc := range tests {
		if got := outcome(tc.err); got != tc.want {
			t.Errorf("outcome(%v)=%s want %s", tc.err, got, tc.want)
		}
	}
}

func TestInstrumented_RecordsOutcome(t *testing.T) {
	m := metrics.NewMetricsCollector(nil)
	g := NewInstrumented(memory.New(), m)
	ctx := context.Background()

	// not whitelisted
	if _, err := g.SubmitBorrow(ctx, "0x1111111111111111111111111111111111111111"); !errors.Is(err, ledgerDomain.ErrRejected) {
		t.Fatalf("want ErrRejected, got %v", err)
	}
	if _, err := g.SubmitLend(ctx, "0x1111111111111111111111111111111111111111", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("SubmitLend: %v", err)
	}

	if got := testutil.CollectAndCount(m.Registry(), "faucet_ledger_calls_total"); got != 2 {
		t.Fatalf("series=%d want 2", got)
	}
}

func TestInstrumented_Forwards(t *testing.T) {
	mock := &ledgermock.Gateway{
		IsOwnerAddressFn: func(context.Context, string) (bool, error) { return true, nil },
	}
	g := NewInstrumented(mock, nil)

	ok, err := g.IsOwnerAddress(context.Background(), "0xabc")
	if err != nil || !ok {
		t.Fatalf("IsOwnerAddress: (%v,%v)", ok, err)
	}
	if mock.Calls("IsOwnerAddress") != 1 {
		t.Fatalf("call not forwarded")
	}
}
