package lock

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive, keyed locks. Acquire blocks until the lock is
// held or ctx ends; the returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func BorrowKey(accountID uint64) string    { return fmt.Sprintf("borrow:%d", accountID) }
func WhitelistKey(accountID uint64) string { return fmt.Sprintf("whitelist:%d", accountID) }
func LendKey(accountID uint64) string      { return fmt.Sprintf("lend:%d", accountID) }
