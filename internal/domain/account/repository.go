package account

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// Create inserts a new account; a duplicate identity key fails with ErrConflict.
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uint64) (*Account, error)
	// GetByIDForUpdate row-locks the account where the dialect supports it.
	GetByIDForUpdate(ctx context.Context, id uint64) (*Account, error)
	GetByIdentityKey(ctx context.Context, key string) (*Account, error)
	GetByAddress(ctx context.Context, address string) (*Account, error)

	// Address bookkeeping (unique on address)
	AddAddress(ctx context.Context, a *Address) error
	GetAddress(ctx context.Context, address string) (*Address, error)
	ListAddresses(ctx context.Context, accountID uint64) ([]Address, error)

	// Targeted column updates; callers hold the matching per-account lock.
	SetBorrowState(ctx context.Context, id uint64, borrowed decimal.Decimal, at time.Time) error
	SetLentAmount(ctx context.Context, id uint64, lent decimal.Decimal) error
}

type WhitelistRepository interface {
	Upsert(ctx context.Context, e *WhitelistEntry) error
	GetByAddress(ctx context.Context, address string) (*WhitelistEntry, error)
}
