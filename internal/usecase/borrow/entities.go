package borrow

import (
	"time"

	"github.com/shopspring/decimal"
)

type BorrowInput struct {
	Address string `json:"account"`
	Email   string `json:"email"`
}

type BorrowDTO struct {
	TxHash string `json:"transactionHash"`
	// Balance after the borrow, read back from the ledger. Informational only.
	Balance    decimal.Decimal `json:"balance"`
	BorrowedAt time.Time       `json:"borrowedAt"`
	Amount     decimal.Decimal `json:"amount"`
	AccountID  string          `json:"accountId"`
}
