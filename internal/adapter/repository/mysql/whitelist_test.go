package mysql

import (
	"context"
	"errors"
	"testing"

	accountDomain "faucet-backend/internal/domain/account"
)

func TestWhitelist_UpsertAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewWhitelistRepository(db)
	ctx := context.Background()
	addr := "0x3333333333333333333333333333333333333333"

	if err := repo.Upsert(ctx, &accountDomain.WhitelistEntry{Address: addr, Whitelisted: true, AccountID: 7}); err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	got, err := repo.GetByAddress(ctx, addr)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if !got.Whitelisted || got.AccountID != 7 {
		t.Fatalf("unexpected entry: %+v", got)
	}

	if err := repo.Upsert(ctx, &accountDomain.WhitelistEntry{Address: addr, Whitelisted: false, AccountID: 7}); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	got, err = repo.GetByAddress(ctx, addr)
	if err != nil {
		t.Fatalf("GetByAddress after update: %v", err)
	}
	if got.Whitelisted {
		t.Fatalf("expected whitelisted=false after update")
	}

	var n int64
	db.Model(&accountDomain.WhitelistEntry{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected a single mirror row, got %d", n)
	}
}

func TestWhitelist_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewWhitelistRepository(db)

	_, err := repo.GetByAddress(context.Background(), "0x4444444444444444444444444444444444444444")
	if !errors.Is(err, accountDomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
