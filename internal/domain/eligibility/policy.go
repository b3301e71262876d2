// Package eligibility decides whether an account may borrow from the faucet.
// It is a pure function of the caller's external balance, the account's last
// confirmed borrow and the current time.
package eligibility

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const Cooldown = 8 * time.Hour

var (
	// BalanceThreshold: a balance at or above this is too high to borrow.
	BalanceThreshold = decimal.RequireFromString("0.5")
	// BorrowAmount is granted per eligible decision.
	BorrowAmount = decimal.RequireFromString("0.2")
)

type Reason string

const (
	ReasonNone           Reason = ""
	ReasonBalanceTooHigh Reason = "BALANCE_TOO_HIGH"
	ReasonCooldownActive Reason = "COOLDOWN_ACTIVE"
)

// RetryAfter is the remaining cooldown, floored to whole hours and minutes.
type RetryAfter struct {
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
}

func (r RetryAfter) String() string {
	return fmt.Sprintf("%d hours and %d minutes", r.Hours, r.Minutes)
}

type Decision struct {
	Eligible   bool        `json:"eligible"`
	Reason     Reason      `json:"reason,omitempty"`
	RetryAfter *RetryAfter `json:"retryAfter,omitempty"`
}

// Evaluate applies the faucet rules. The balance rule is checked first.
func Evaluate(balance decimal.Decimal, lastBorrowedAt *time.Time, now time.Time) Decision {
	if balance.GreaterThanOrEqual(BalanceThreshold) {
		return Decision{Reason: ReasonBalanceTooHigh}
	}
	if lastBorrowedAt != nil {
		elapsed := now.Sub(*lastBorrowedAt)
		if elapsed < Cooldown {
			return Decision{Reason: ReasonCooldownActive, RetryAfter: remaining(Cooldown - elapsed)}
		}
	}
	return Decision{Eligible: true}
}

func remaining(d time.Duration) *RetryAfter {
	ms := d.Milliseconds()
	return &RetryAfter{
		Hours:   ms / (60 * 60 * 1000),
		Minutes: (ms % (60 * 60 * 1000)) / (60 * 1000),
	}
}

var ErrDenied = errors.New("borrow denied by eligibility policy")

// DeniedError carries the decision that refused a borrow.
type DeniedError struct {
	Decision Decision
	Balance  decimal.Decimal
}

func (e *DeniedError) Error() string {
	switch e.Decision.Reason {
	case ReasonBalanceTooHigh:
		return fmt.Sprintf("wallet balance %s is at or above %s and cannot borrow from the faucet", e.Balance, BalanceThreshold)
	case ReasonCooldownActive:
		if e.Decision.RetryAfter != nil {
			return "please wait " + e.Decision.RetryAfter.String() + " before borrowing again"
		}
	}
	return ErrDenied.Error()
}

func (e *DeniedError) Is(target error) bool { return target == ErrDenied }
