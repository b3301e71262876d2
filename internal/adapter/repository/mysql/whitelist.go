package mysql

import (
	"context"

	accountDomain "faucet-backend/internal/domain/account"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WhitelistRepository struct{ db *gorm.DB }

func NewWhitelistRepository(db *gorm.DB) *WhitelistRepository { return &WhitelistRepository{db: db} }

// Upsert writes the mirror entry keyed by address.
func (r *WhitelistRepository) Upsert(ctx context.Context, e *accountDomain.WhitelistEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"whitelisted", "account_id", "updated_at"}),
		}).
		Create(e).Error
}

func (r *WhitelistRepository) GetByAddress(ctx context.Context, address string) (*accountDomain.WhitelistEntry, error) {
	var out accountDomain.WhitelistEntry
	res := r.db.WithContext(ctx).Where("address = ?", address).First(&out)
	return found(&out, res.Error)
}
