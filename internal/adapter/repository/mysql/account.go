package mysql

import (
	"context"
	"errors"
	"time"

	accountDomain "faucet-backend/internal/domain/account"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) *AccountRepository { return &AccountRepository{db: db} }

func (r *AccountRepository) Create(ctx context.Context, a *accountDomain.Account) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return accountDomain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uint64) (*accountDomain.Account, error) {
	var out accountDomain.Account
	res := r.db.WithContext(ctx).Where("id = ?", id).First(&out)
	return found(&out, res.Error)
}

func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*accountDomain.Account, error) {
	var out accountDomain.Account
	q := r.db.WithContext(ctx)
	// sqlite has no row locks; its write lock already serializes transactions
	if q.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	res := q.Where("id = ?", id).First(&out)
	return found(&out, res.Error)
}

func (r *AccountRepository) GetByIdentityKey(ctx context.Context, key string) (*accountDomain.Account, error) {
	var out accountDomain.Account
	res := r.db.WithContext(ctx).Where("identity_key = ?", key).First(&out)
	return found(&out, res.Error)
}

func (r *AccountRepository) GetByAddress(ctx context.Context, address string) (*accountDomain.Account, error) {
	var out accountDomain.Account
	res := r.db.WithContext(ctx).
		Joins("JOIN account_addresses aa ON aa.account_id = accounts.id").
		Where("aa.address = ?", address).
		First(&out)
	return found(&out, res.Error)
}

func (r *AccountRepository) AddAddress(ctx context.Context, a *accountDomain.Address) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return accountDomain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *AccountRepository) GetAddress(ctx context.Context, address string) (*accountDomain.Address, error) {
	var out accountDomain.Address
	res := r.db.WithContext(ctx).Where("address = ?", address).First(&out)
	return found(&out, res.Error)
}

func (r *AccountRepository) ListAddresses(ctx context.Context, accountID uint64) ([]accountDomain.Address, error) {
	var out []accountDomain.Address
	res := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

func (r *AccountRepository) SetBorrowState(ctx context.Context, id uint64, borrowed decimal.Decimal, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&accountDomain.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{"borrowed_amount": borrowed, "last_borrowed_at": at.UTC()})
	return res.Error
}

func (r *AccountRepository) SetLentAmount(ctx context.Context, id uint64, lent decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&accountDomain.Account{}).
		Where("id = ?", id).
		Update("lent_amount", lent)
	return res.Error
}

// found maps gorm's not-found onto the domain sentinel.
func found[T any](out *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, accountDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
