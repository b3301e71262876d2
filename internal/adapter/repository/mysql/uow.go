package mysql

import (
	"context"

	"faucet-backend/internal/domain/account"
	"faucet-backend/internal/domain/transaction"
	"faucet-backend/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func repos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Accounts:     &AccountRepository{db: tx},
		Whitelist:    &WhitelistRepository{db: tx},
		Transactions: &TransactionRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repos(tx))
	})
}

func (u *GormUoW) WithinAccountTx(ctx context.Context, accountID uint64, fn func(r uow.Repos, a *account.Account) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repos(tx)
		// lock the account row up-front to prevent races
		a, err := r.Accounts.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		return fn(r, a)
	})
}

// Models lists every table this package owns, in dependency order.
func Models() []any {
	return []any{
		&account.Account{},
		&account.Address{},
		&account.WhitelistEntry{},
		&transaction.Record{},
		&transaction.Unconfirmed{},
	}
}

// AutoMigrate creates the schema with gorm; used for sqlite and tests. MySQL
// deployments run the goose migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
