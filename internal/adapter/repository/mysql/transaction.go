package mysql

import (
	"context"
	"errors"

	txDomain "faucet-backend/internal/domain/transaction"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxListLimit = 500

type TransactionRepository struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// RecordIfNew relies on the unique tx_hash index, so two concurrent inserts of
// the same hash cannot both succeed.
func (r *TransactionRepository) RecordIfNew(ctx context.Context, rec *txDomain.Record) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "tx_hash"}}, DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *TransactionRepository) GetByTxHash(ctx context.Context, txHash string) (*txDomain.Record, error) {
	var out txDomain.Record
	res := r.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, txDomain.ErrNotFound
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return &out, nil
}

func (r *TransactionRepository) ListByAddress(ctx context.Context, address string, limit, offset int) ([]txDomain.Record, error) {
	var out []txDomain.Record
	res := r.db.WithContext(ctx).
		Where("address = ?", address).
		Order("id DESC").
		Limit(clampLimit(limit)).
		Offset(max(offset, 0)).
		Find(&out)
	return out, res.Error
}

func (r *TransactionRepository) List(ctx context.Context, limit, offset int) ([]txDomain.Record, error) {
	var out []txDomain.Record
	res := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(clampLimit(limit)).
		Offset(max(offset, 0)).
		Find(&out)
	return out, res.Error
}

func (r *TransactionRepository) FlagUnconfirmed(ctx context.Context, u *txDomain.Unconfirmed) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *TransactionRepository) ListUnconfirmed(ctx context.Context, limit int) ([]txDomain.Unconfirmed, error) {
	var out []txDomain.Unconfirmed
	res := r.db.WithContext(ctx).Order("id DESC").Limit(clampLimit(limit)).Find(&out)
	return out, res.Error
}

func clampLimit(n int) int {
	if n <= 0 || n > maxListLimit {
		return maxListLimit
	}
	return n
}
