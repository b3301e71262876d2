package transaction

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

type Kind string

const (
	KindBorrow    Kind = "BORROW"
	KindLend      Kind = "LEND"
	KindWithdraw  Kind = "WITHDRAW"
	KindWhitelist Kind = "WHITELIST"
)

func (k Kind) Valid() bool {
	switch k {
	case KindBorrow, KindLend, KindWithdraw, KindWhitelist:
		return true
	}
	return false
}

// Table: transactions. One row per confirmed external transaction, never updated.
type Record struct {
	// Sequence number, assigned by storage. Display ordering only.
	ID          uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"sequence"`
	TxHash      string          `gorm:"column:tx_hash;size:66;not null;uniqueIndex:ux_transactions_tx_hash" json:"transaction_hash"`
	Address     string          `gorm:"column:address;size:42;not null;index:idx_transactions_address" json:"address"`
	Kind        Kind            `gorm:"column:kind;size:16;not null" json:"kind"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(36,18);not null" json:"amount"`
	ConfirmedAt time.Time       `gorm:"column:confirmed_at;not null" json:"confirmed_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Record) TableName() string { return "transactions" }

// Table: unconfirmed_submissions. Submissions whose outcome is unknown
// (timed out waiting for confirmation), kept for manual reconciliation.
type Unconfirmed struct {
	ID        uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TxHash    string          `gorm:"column:tx_hash;size:66" json:"transaction_hash"`
	Address   string          `gorm:"column:address;size:42;not null" json:"address"`
	Kind      Kind            `gorm:"column:kind;size:16;not null" json:"kind"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(36,18);not null" json:"amount"`
	Reason    string          `gorm:"column:reason;type:text" json:"reason"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Unconfirmed) TableName() string { return "unconfirmed_submissions" }

// Event is the payload published after a record is inserted.
type Event struct {
	Sequence    uint64          `json:"sequence"`
	TxHash      string          `json:"transaction_hash"`
	Address     string          `json:"address"`
	Kind        Kind            `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

func NewEvent(r *Record) Event {
	return Event{
		Sequence:    r.ID,
		TxHash:      r.TxHash,
		Address:     r.Address,
		Kind:        r.Kind,
		Amount:      r.Amount,
		ConfirmedAt: r.ConfirmedAt,
	}
}
