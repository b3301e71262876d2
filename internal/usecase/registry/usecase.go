package registry

import (
	"context"
	"errors"
	"log/slog"

	"faucet-backend/internal/domain/account"
	"faucet-backend/pkg/id"
)

// Usecase maps identity keys and wallet addresses onto accounts.
type Usecase struct {
	accounts   account.Repository
	autoCreate bool
	log        *slog.Logger
}

// NewUsecase: autoCreate lets an unknown address-only requester get an
// account keyed by its address.
func NewUsecase(accounts account.Repository, autoCreate bool, log *slog.Logger) *Usecase {
	if log == nil {
		log = slog.Default()
	}
	return &Usecase{accounts: accounts, autoCreate: autoCreate, log: log}
}

func (u *Usecase) ResolveByAddress(ctx context.Context, address string) (*account.Account, error) {
	addr, err := account.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return u.accounts.GetByAddress(ctx, addr)
}

// ResolveOrCreate is idempotent. When two callers race on the same key the
// loser re-reads and returns the winner's account.
func (u *Usecase) ResolveOrCreate(ctx context.Context, identityKey string) (*account.Account, error) {
	key, err := account.NormalizeIdentityKey(identityKey)
	if err != nil {
		return nil, err
	}
	acc, err := u.accounts.GetByIdentityKey(ctx, key)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return nil, err
	}

	acc = &account.Account{AccountID: id.NewID32(), IdentityKey: key}
	if cerr := u.accounts.Create(ctx, acc); cerr != nil {
		if winner, rerr := u.accounts.GetByIdentityKey(ctx, key); rerr == nil {
			return winner, nil
		}
		return nil, cerr
	}
	u.log.Info("account created", "account_id", acc.AccountID)
	return acc, nil
}

// AssociateAddress binds address to acc. Binding an address the account
// already owns is a no-op; one owned by another account fails with ErrConflict.
func (u *Usecase) AssociateAddress(ctx context.Context, acc *account.Account, address string) error {
	addr, err := account.NormalizeAddress(address)
	if err != nil {
		return err
	}
	owned, err := u.owner(ctx, addr)
	switch {
	case err != nil:
		return err
	case owned == acc.ID:
		return nil
	case owned != 0:
		return account.ErrConflict
	}

	if aerr := u.accounts.AddAddress(ctx, &account.Address{AccountID: acc.ID, Address: addr}); aerr != nil {
		// lost a race; whoever won decides the outcome
		owned, err := u.owner(ctx, addr)
		if err != nil || owned == 0 {
			return aerr
		}
		if owned != acc.ID {
			return account.ErrConflict
		}
	}
	return nil
}

// owner returns the id of the account holding addr, or 0.
func (u *Usecase) owner(ctx context.Context, addr string) (uint64, error) {
	a, err := u.accounts.GetAddress(ctx, addr)
	if errors.Is(err, account.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return a.AccountID, nil
}

// Lookup resolves the requester without binding the address. With an
// identity key the account is resolved or created; with an address only it is
// resolved by address, falling back to an address-keyed account when
// auto-creation is on. An address already bound elsewhere fails with ErrConflict.
func (u *Usecase) Lookup(ctx context.Context, identityKey, address string) (*account.Account, error) {
	addr, err := account.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	bound, err := u.accounts.GetByAddress(ctx, addr)
	if err != nil && !errors.Is(err, account.ErrNotFound) {
		return nil, err
	}

	if identityKey != "" {
		key, err := account.NormalizeIdentityKey(identityKey)
		if err != nil {
			return nil, err
		}
		if bound != nil && bound.IdentityKey != key {
			return nil, account.ErrConflict
		}
		if bound != nil {
			return bound, nil
		}
		return u.ResolveOrCreate(ctx, key)
	}

	if bound != nil {
		return bound, nil
	}
	if !u.autoCreate {
		return nil, account.ErrUnknownAccount
	}
	return u.ResolveOrCreate(ctx, addr)
}

// ResolveRequester is Lookup followed by AssociateAddress.
func (u *Usecase) ResolveRequester(ctx context.Context, identityKey, address string) (*account.Account, error) {
	acc, err := u.Lookup(ctx, identityKey, address)
	if err != nil {
		return nil, err
	}
	if err := u.AssociateAddress(ctx, acc, address); err != nil {
		return nil, err
	}
	return acc, nil
}

// Account is a read-only resolution: by identity key when given, else by address.
func (u *Usecase) Account(ctx context.Context, identityKey, address string) (*account.Account, error) {
	var (
		acc *account.Account
		err error
	)
	if identityKey != "" {
		key, kerr := account.NormalizeIdentityKey(identityKey)
		if kerr != nil {
			return nil, kerr
		}
		acc, err = u.accounts.GetByIdentityKey(ctx, key)
	} else {
		acc, err = u.ResolveByAddress(ctx, address)
	}
	if errors.Is(err, account.ErrNotFound) {
		return nil, account.ErrUnknownAccount
	}
	return acc, err
}

// Addresses lists the wallet addresses bound to acc.
func (u *Usecase) Addresses(ctx context.Context, acc *account.Account) ([]string, error) {
	rows, err := u.accounts.ListAddresses(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Address)
	}
	return out, nil
}
