package uow

import (
	"context"

	"faucet-backend/internal/domain/account"
	"faucet-backend/internal/domain/transaction"
)

// Repos are bound to one database transaction.
type Repos struct {
	Accounts     account.Repository
	Whitelist    account.WhitelistRepository
	Transactions transaction.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the account row first, then pass it in
	WithinAccountTx(ctx context.Context, accountID uint64, fn func(r Repos, a *account.Account) error) error
}
