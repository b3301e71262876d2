package treasury

import (
	"time"

	"github.com/shopspring/decimal"
)

type LendInput struct {
	Address string          `json:"userAddress"`
	Amount  decimal.Decimal `json:"amount"`
}

// TxDTO describes one confirmed treasury transaction.
type TxDTO struct {
	TxHash      string          `json:"transactionHash"`
	Address     string          `json:"address"`
	Amount      decimal.Decimal `json:"amount"`
	ConfirmedAt time.Time       `json:"confirmedAt"`
}
