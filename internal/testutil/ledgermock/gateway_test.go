package ledgermock

import (
	"context"
	"errors"
	"testing"

	"faucet-backend/internal/domain/ledger"

	"github.com/shopspring/decimal"
)

func TestGateway_SubmitBorrow(t *testing.T) {
	ctx := context.Background()
	want := &ledger.Receipt{TxHash: "0xabc"}

	m := &Gateway{
		SubmitBorrowFn: func(gotCtx context.Context, address string) (*ledger.Receipt, error) {
			if gotCtx != ctx {
				t.Fatalf("SubmitBorrow ctx mismatch")
			}
			if address != "0x01" {
				t.Fatalf("SubmitBorrow address mismatch: %s", address)
			}
			return want, nil
		},
	}
	got, err := m.SubmitBorrow(ctx, "0x01")
	if err != nil || got != want {
		t.Fatalf("SubmitBorrow: got (%v,%v)", got, err)
	}
	if m.Calls("SubmitBorrow") != 1 {
		t.Fatalf("SubmitBorrow calls=%d want 1", m.Calls("SubmitBorrow"))
	}
}

func TestGateway_Defaults(t *testing.T) {
	ctx := context.Background()
	m := &Gateway{}

	if _, err := m.SubmitBorrow(ctx, "0x01"); !errors.Is(err, errUnimplemented) {
		t.Fatalf("SubmitBorrow default: want errUnimplemented, got %v", err)
	}
	if _, err := m.SubmitLend(ctx, "0x01", decimal.NewFromInt(1)); !errors.Is(err, errUnimplemented) {
		t.Fatalf("SubmitLend default: want errUnimplemented, got %v", err)
	}
	if _, err := m.SubmitWithdraw(ctx, decimal.NewFromInt(1)); !errors.Is(err, errUnimplemented) {
		t.Fatalf("SubmitWithdraw default: want errUnimplemented, got %v", err)
	}
	if _, err := m.SetWhitelisted(ctx, "0x01", true); !errors.Is(err, errUnimplemented) {
		t.Fatalf("SetWhitelisted default: want errUnimplemented, got %v", err)
	}
	if _, err := m.IsWhitelisted(ctx, "0x01"); !errors.Is(err, errUnimplemented) {
		t.Fatalf("IsWhitelisted default: want errUnimplemented, got %v", err)
	}
	if _, err := m.IsOwnerAddress(ctx, "0x01"); !errors.Is(err, errUnimplemented) {
		t.Fatalf("IsOwnerAddress default: want errUnimplemented, got %v", err)
	}
	bal, err := m.GetBalance(ctx, "0x01")
	if err != nil || !bal.IsZero() {
		t.Fatalf("GetBalance default: want (0,nil), got (%s,%v)", bal, err)
	}
	if m.Calls("GetBalance") != 1 || m.Calls("SubmitLend") != 1 {
		t.Fatalf("call counters not recorded")
	}
}
