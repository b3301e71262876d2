package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	txDomain "faucet-backend/internal/domain/transaction"

	"github.com/shopspring/decimal"
)

func makeRecord(hash, addr string, kind txDomain.Kind, amount string) *txDomain.Record {
	return &txDomain.Record{
		TxHash:      hash,
		Address:     addr,
		Kind:        kind,
		Amount:      decimal.RequireFromString(amount),
		ConfirmedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestTransaction_RecordIfNew(t *testing.T) {
	db := openTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()
	addr := "0x5555555555555555555555555555555555555555"

	inserted, err := repo.RecordIfNew(ctx, makeRecord("0xaaa", addr, txDomain.KindBorrow, "0.2"))
	if err != nil || !inserted {
		t.Fatalf("first RecordIfNew: inserted=%v err=%v", inserted, err)
	}

	inserted, err = repo.RecordIfNew(ctx, makeRecord("0xaaa", addr, txDomain.KindBorrow, "0.2"))
	if err != nil {
		t.Fatalf("second RecordIfNew: %v", err)
	}
	if inserted {
		t.Fatalf("duplicate hash must not insert")
	}

	var n int64
	db.Model(&txDomain.Record{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}

	got, err := repo.GetByTxHash(ctx, "0xaaa")
	if err != nil {
		t.Fatalf("GetByTxHash: %v", err)
	}
	if got.Kind != txDomain.KindBorrow || !got.Amount.Equal(decimal.RequireFromString("0.2")) {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestTransaction_GetByTxHash_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewTransactionRepository(db)

	if _, err := repo.GetByTxHash(context.Background(), "0xnope"); !errors.Is(err, txDomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransaction_Lists(t *testing.T) {
	db := openTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()
	a := "0x6666666666666666666666666666666666666666"
	b := "0x7777777777777777777777777777777777777777"

	seed := []*txDomain.Record{
		makeRecord("0x01", a, txDomain.KindBorrow, "0.2"),
		makeRecord("0x02", b, txDomain.KindLend, "1"),
		makeRecord("0x03", a, txDomain.KindLend, "0.5"),
	}
	for _, r := range seed {
		if _, err := repo.RecordIfNew(ctx, r); err != nil {
			t.Fatalf("seed %s: %v", r.TxHash, err)
		}
	}

	byAddr, err := repo.ListByAddress(ctx, a, 10, 0)
	if err != nil {
		t.Fatalf("ListByAddress: %v", err)
	}
	if len(byAddr) != 2 || byAddr[0].TxHash != "0x03" || byAddr[1].TxHash != "0x01" {
		t.Fatalf("unexpected ListByAddress order: %+v", byAddr)
	}

	second, err := repo.ListByAddress(ctx, a, 1, 1)
	if err != nil {
		t.Fatalf("ListByAddress page 2: %v", err)
	}
	if len(second) != 1 || second[0].TxHash != "0x01" {
		t.Fatalf("offset ignored: %+v", second)
	}
	if past, _ := repo.ListByAddress(ctx, a, 10, 5); len(past) != 0 {
		t.Fatalf("offset past the end should be empty, got %+v", past)
	}

	page, err := repo.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 || page[0].TxHash != "0x02" || page[1].TxHash != "0x01" {
		t.Fatalf("unexpected List page: %+v", page)
	}
}

func TestTransaction_Unconfirmed(t *testing.T) {
	db := openTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	u := &txDomain.Unconfirmed{
		TxHash:  "0xpending",
		Address: "0x8888888888888888888888888888888888888888",
		Kind:    txDomain.KindBorrow,
		Amount:  decimal.RequireFromString("0.2"),
		Reason:  "timeout",
	}
	if err := repo.FlagUnconfirmed(ctx, u); err != nil {
		t.Fatalf("FlagUnconfirmed: %v", err)
	}
	list, err := repo.ListUnconfirmed(ctx, 0)
	if err != nil {
		t.Fatalf("ListUnconfirmed: %v", err)
	}
	if len(list) != 1 || list[0].TxHash != "0xpending" {
		t.Fatalf("unexpected unconfirmed list: %+v", list)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, maxListLimit}, {-3, maxListLimit}, {10, 10}, {maxListLimit + 1, maxListLimit},
	}
	for _, tc := range tests {
		if got := clampLimit(tc.in); got != tc.want {
			t.Errorf("clampLimit(%d)=%d want %d", tc.in, got, tc.want)
		}
	}
}
