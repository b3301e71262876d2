// Package ledger defines the contract of the external treasury ledger. The
// external ledger is authoritative for balances and whitelisting; every submit
// call blocks until the submission reaches a terminal status or the bounded
// confirmation wait runs out.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrRejected: explicit refusal, non-success terminal status, or no receipt.
	ErrRejected = errors.New("ledger rejected the transaction")
	// ErrTimeout: submitted but no terminal status within the bound. The true
	// outcome is unknown.
	ErrTimeout = errors.New("ledger confirmation timed out")
	// ErrUnavailable: a read-only call could not reach the ledger.
	ErrUnavailable = errors.New("ledger unavailable")
)

type Op string

const (
	OpBorrow       Op = "borrow"
	OpLend         Op = "lend"
	OpWithdraw     Op = "withdraw"
	OpSetWhitelist Op = "set_whitelist"
)

// Receipt is reported only for explicitly successful submissions.
type Receipt struct {
	TxHash      string
	From        string
	Block       uint64
	ConfirmedAt time.Time
}

// SubmissionError classifies a failed submission as ErrRejected or ErrTimeout.
type SubmissionError struct {
	Op     Op
	Kind   error
	Reason string
	// TxHash is set when the ledger accepted the submission but never confirmed it.
	TxHash string
}

func (e *SubmissionError) Error() string {
	msg := string(e.Op) + ": " + e.Kind.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *SubmissionError) Unwrap() error { return e.Kind }

func Rejected(op Op, reason string) error {
	return &SubmissionError{Op: op, Kind: ErrRejected, Reason: reason}
}

func TimedOut(op Op, txHash string) error {
	return &SubmissionError{Op: op, Kind: ErrTimeout, TxHash: txHash, Reason: "no terminal status before deadline"}
}

type Gateway interface {
	SubmitBorrow(ctx context.Context, address string) (*Receipt, error)
	SubmitLend(ctx context.Context, address string, amount decimal.Decimal) (*Receipt, error)
	// SubmitWithdraw draws amount from the treasury to the owner; Receipt.From is the sender.
	SubmitWithdraw(ctx context.Context, amount decimal.Decimal) (*Receipt, error)
	SetWhitelisted(ctx context.Context, address string, whitelisted bool) (*Receipt, error)

	IsWhitelisted(ctx context.Context, address string) (bool, error)
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
	IsOwnerAddress(ctx context.Context, address string) (bool, error)
}

// TxHashOf returns the tx hash carried by a submission error, if any.
func TxHashOf(err error) string {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.TxHash
	}
	return ""
}
