package account

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrUnknownAccount = errors.New("unknown account")
	ErrConflict       = errors.New("address already bound to a different account")
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrInvalidKey     = errors.New("invalid identity key")
)

// Table: accounts
type Account struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	// Public identifier (32-char lowercase hex)
	AccountID string `gorm:"column:account_id;size:32;not null;uniqueIndex:ux_accounts_account_id" json:"account_id"`
	// Lower-cased email, or the lower-cased address for accounts first seen through an address.
	IdentityKey    string          `gorm:"column:identity_key;size:255;not null;uniqueIndex:ux_accounts_identity_key" json:"identity_key"`
	BorrowedAmount decimal.Decimal `gorm:"column:borrowed_amount;type:decimal(36,18);not null;default:0" json:"borrowed_amount"`
	LentAmount     decimal.Decimal `gorm:"column:lent_amount;type:decimal(36,18);not null;default:0" json:"lent_amount"`
	// Set only from a confirmed borrow.
	LastBorrowedAt *time.Time `gorm:"column:last_borrowed_at" json:"last_borrowed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// Table: account_addresses. An address belongs to at most one account.
type Address struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	AccountID uint64    `gorm:"column:account_id;not null;index:idx_account_addresses_account"`
	Address   string    `gorm:"column:address;size:42;not null;uniqueIndex:ux_account_addresses_address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Address) TableName() string { return "account_addresses" }

// Table: whitelist_entries. Local mirror of the treasury whitelist.
type WhitelistEntry struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Address     string    `gorm:"column:address;size:42;not null;uniqueIndex:ux_whitelist_entries_address" json:"address"`
	Whitelisted bool      `gorm:"column:whitelisted;not null;default:false" json:"whitelisted"`
	AccountID   uint64    `gorm:"column:account_id;not null;index" json:"-"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (WhitelistEntry) TableName() string { return "whitelist_entries" }

var reAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// NormalizeAddress validates an EVM address and returns it lower-cased.
func NormalizeAddress(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !reAddress.MatchString(s) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(s), nil
}

// NormalizeIdentityKey lower-cases and trims an identity key (e.g. an email).
func NormalizeIdentityKey(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || len(s) > 255 {
		return "", ErrInvalidKey
	}
	return s, nil
}
