package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	repo "faucet-backend/internal/adapter/repository/mysql"
	"faucet-backend/internal/domain/account"
	"faucet-backend/internal/testutil/dbtest"
)

const (
	addrA = "0xAAAaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func newUsecase(t *testing.T, autoCreate bool) *Usecase {
	t.Helper()
	db := dbtest.Open(t)
	return NewUsecase(repo.NewAccountRepository(db), autoCreate, nil)
}

func TestResolveOrCreate_Idempotent(t *testing.T) {
	u := newUsecase(t, true)
	ctx := context.Background()

	a1, err := u.ResolveOrCreate(ctx, "Alice@Example.com")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	a2, err := u.ResolveOrCreate(ctx, " alice@example.com ")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a1.ID != a2.ID || a1.IdentityKey != "alice@example.com" {
		t.Fatalf("expected same account, got %+v and %+v", a1, a2)
	}
	if len(a1.AccountID) != 32 {
		t.Fatalf("public id should be 32 chars, got %q", a1.AccountID)
	}

	if _, err := u.ResolveOrCreate(ctx, "   "); !errors.Is(err, account.ErrInvalidKey) {
		t.Fatalf("blank key: want ErrInvalidKey, got %v", err)
	}
}

func TestResolveOrCreate_Concurrent(t *testing.T) {
	u := newUsecase(t, true)
	ctx := context.Background()

	const n = 8
	ids := make([]uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := u.ResolveOrCreate(ctx, "race@example.com")
			if err != nil {
				t.Errorf("ResolveOrCreate: %v", err)
				return
			}
			ids[i] = a.ID
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent callers got different accounts: %v", ids)
		}
	}
}

func TestAssociateAddress(t *testing.T) {
	u := newUsecase(t, true)
	ctx := context.Background()

	alice, _ := u.ResolveOrCreate(ctx, "alice@example.com")
	bob, _ := u.ResolveOrCreate(ctx, "bob@example.com")

	if err := u.AssociateAddress(ctx, alice, addrA); err != nil {
		t.Fatalf("associate: %v", err)
	}
	if err := u.AssociateAddress(ctx, alice, addrA); err != nil {
		t.Fatalf("re-associate same account must be a no-op: %v", err)
	}
	if err := u.AssociateAddress(ctx, bob, addrA); !errors.Is(err, account.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if err := u.AssociateAddress(ctx, bob, "not-an-address"); !errors.Is(err, account.ErrInvalidAddress) {
		t.Fatalf("want ErrInvalidAddress, got %v", err)
	}

	got, err := u.ResolveByAddress(ctx, addrA)
	if err != nil || got.ID != alice.ID {
		t.Fatalf("ResolveByAddress: %+v, %v", got, err)
	}
	addrs, err := u.Addresses(ctx, alice)
	if err != nil || len(addrs) != 1 || addrs[0] != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("Addresses: %v, %v", addrs, err)
	}
}

func TestResolveByAddress_NotFound(t *testing.T) {
	u := newUsecase(t, true)
	if _, err := u.ResolveByAddress(context.Background(), addrB); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestResolveRequester(t *testing.T) {
	ctx := context.Background()

	t.Run("identity creates and binds", func(t *testing.T) {
		u := newUsecase(t, false)
		acc, err := u.ResolveRequester(ctx, "carol@example.com", addrA)
		if err != nil {
			t.Fatalf("ResolveRequester: %v", err)
		}
		got, err := u.ResolveByAddress(ctx, addrA)
		if err != nil || got.ID != acc.ID {
			t.Fatalf("address not bound: %+v, %v", got, err)
		}
	})

	t.Run("address bound to another identity conflicts", func(t *testing.T) {
		u := newUsecase(t, false)
		if _, err := u.ResolveRequester(ctx, "carol@example.com", addrA); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if _, err := u.ResolveRequester(ctx, "dave@example.com", addrA); !errors.Is(err, account.ErrConflict) {
			t.Fatalf("want ErrConflict, got %v", err)
		}
		// no account should have been created for dave
		if _, err := u.Account(ctx, "dave@example.com", ""); !errors.Is(err, account.ErrUnknownAccount) {
			t.Fatalf("conflict must not create an account, got %v", err)
		}
	})

	t.Run("address only without auto-create", func(t *testing.T) {
		u := newUsecase(t, false)
		if _, err := u.ResolveRequester(ctx, "", addrB); !errors.Is(err, account.ErrUnknownAccount) {
			t.Fatalf("want ErrUnknownAccount, got %v", err)
		}
	})

	t.Run("address only with auto-create", func(t *testing.T) {
		u := newUsecase(t, true)
		acc, err := u.ResolveRequester(ctx, "", addrB)
		if err != nil {
			t.Fatalf("ResolveRequester: %v", err)
		}
		if acc.IdentityKey != addrB {
			t.Fatalf("identity key=%s want address", acc.IdentityKey)
		}
		again, err := u.ResolveRequester(ctx, "", addrB)
		if err != nil || again.ID != acc.ID {
			t.Fatalf("second resolve: %+v, %v", again, err)
		}
	})

	t.Run("address only resolves an existing binding", func(t *testing.T) {
		u := newUsecase(t, false)
		owner, _ := u.ResolveRequester(ctx, "erin@example.com", addrA)
		got, err := u.ResolveRequester(ctx, "", addrA)
		if err != nil || got.ID != owner.ID {
			t.Fatalf("want erin's account, got %+v, %v", got, err)
		}
	})
}

func TestLookup_DoesNotBind(t *testing.T) {
	u := newUsecase(t, true)
	ctx := context.Background()

	acc, err := u.Lookup(ctx, "frank@example.com", addrA)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if acc.ID == 0 {
		t.Fatalf("expected a created account")
	}
	if _, err := u.ResolveByAddress(ctx, addrA); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("Lookup must not bind the address, got %v", err)
	}
}

func TestAccount_ReadOnly(t *testing.T) {
	u := newUsecase(t, true)
	ctx := context.Background()

	if _, err := u.Account(ctx, "ghost@example.com", ""); !errors.Is(err, account.ErrUnknownAccount) {
		t.Fatalf("want ErrUnknownAccount, got %v", err)
	}
	if _, err := u.Account(ctx, "", addrB); !errors.Is(err, account.ErrUnknownAccount) {
		t.Fatalf("want ErrUnknownAccount, got %v", err)
	}

	seeded, _ := u.ResolveRequester(ctx, "gina@example.com", addrB)
	got, err := u.Account(ctx, "", addrB)
	if err != nil || got.ID != seeded.ID {
		t.Fatalf("Account by address: %+v, %v", got, err)
	}
}
