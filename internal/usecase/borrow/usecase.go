package borrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"faucet-backend/internal/domain/account"
	"faucet-backend/internal/domain/eligibility"
	"faucet-backend/internal/domain/ledger"
	"faucet-backend/internal/domain/lock"
	"faucet-backend/internal/domain/transaction"
	"faucet-backend/internal/domain/uow"
	"faucet-backend/internal/usecase/registry"
	"faucet-backend/pkg/metrics"

	"github.com/shopspring/decimal"
)

type Deps struct {
	Registry     *registry.Usecase
	Accounts     account.Repository
	Transactions transaction.Repository
	UoW          uow.UnitOfWork
	Gateway      ledger.Gateway
	Locker       lock.Locker
	Publisher    transaction.Publisher
	Metrics      *metrics.MetricsCollector
	Logger       *slog.Logger
}

// defaultReadTimeout bounds balance reads taken while the borrow lock is held.
const defaultReadTimeout = 10 * time.Second

type Usecase struct {
	Deps
	now         func() time.Time
	readTimeout time.Duration
}

type Option func(*Usecase)

func WithClock(now func() time.Time) Option { return func(u *Usecase) { u.now = now } }

func WithReadTimeout(d time.Duration) Option { return func(u *Usecase) { u.readTimeout = d } }

func NewUsecase(d Deps, opts ...Option) *Usecase {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Publisher == nil {
		d.Publisher = transaction.NopPublisher{}
	}
	u := &Usecase{Deps: d, now: time.Now, readTimeout: defaultReadTimeout}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Borrow runs one faucet borrow for the requester. At most one borrow per
// account is in flight; a second request waits and is evaluated against the
// state the first one left behind.
func (u *Usecase) Borrow(ctx context.Context, in BorrowInput) (*BorrowDTO, error) {
	addr, err := account.NormalizeAddress(in.Address)
	if err != nil {
		return nil, err
	}
	acc, err := u.Registry.ResolveRequester(ctx, in.Email, addr)
	if err != nil {
		return nil, err
	}
	log := u.Logger.With("account_id", acc.AccountID, "address", addr)

	release, err := u.Locker.Acquire(ctx, lock.BorrowKey(acc.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	// re-read under the lock; a previous holder may have just borrowed
	acc, err = u.Accounts.GetByID(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	balance, err := u.balance(ctx, addr)
	if err != nil {
		return nil, err
	}

	decision := eligibility.Evaluate(balance, acc.LastBorrowedAt, u.now())
	if !decision.Eligible {
		u.Metrics.RecordBorrowDecision(string(decision.Reason))
		log.Info("borrow denied", "reason", decision.Reason, "balance", balance.String())
		return nil, &eligibility.DeniedError{Decision: decision, Balance: balance}
	}
	u.Metrics.RecordBorrowDecision("eligible")

	// the submission must not be abandoned if the client goes away
	sctx := context.WithoutCancel(ctx)
	log.Info("borrow submitting")
	rc, err := u.Gateway.SubmitBorrow(sctx, addr)
	if err != nil {
		if errors.Is(err, ledger.ErrTimeout) {
			u.flagUnconfirmed(sctx, log, addr, err)
		}
		log.Warn("borrow not confirmed", "err", err)
		return nil, err
	}

	rec := &transaction.Record{
		TxHash:      rc.TxHash,
		Address:     addr,
		Kind:        transaction.KindBorrow,
		Amount:      eligibility.BorrowAmount,
		ConfirmedAt: rc.ConfirmedAt,
	}
	inserted := false
	err = u.UoW.WithinAccountTx(sctx, acc.ID, func(r uow.Repos, a *account.Account) error {
		ok, err := r.Transactions.RecordIfNew(sctx, rec)
		if err != nil || !ok {
			return err
		}
		inserted = true
		return r.Accounts.SetBorrowState(sctx, a.ID, a.BorrowedAmount.Add(eligibility.BorrowAmount), rc.ConfirmedAt)
	})
	if err != nil {
		// the ledger already moved the funds; only reconciliation can fix this
		log.Error("borrow confirmed but not recorded", "tx_hash", rc.TxHash, "err", err)
		return nil, fmt.Errorf("record borrow %s: %w", rc.TxHash, err)
	}
	if inserted {
		u.Metrics.RecordTransaction(string(transaction.KindBorrow))
		if err := u.Publisher.Publish(sctx, transaction.NewEvent(rec)); err != nil {
			log.Warn("publish borrow event failed", "tx_hash", rc.TxHash, "err", err)
		}
	}
	log.Info("borrow confirmed", "tx_hash", rc.TxHash, "block", rc.Block)

	after, err := u.balance(sctx, addr)
	if err != nil {
		after = balance.Add(eligibility.BorrowAmount)
	}
	return &BorrowDTO{
		TxHash:     rc.TxHash,
		Balance:    after,
		BorrowedAt: rc.ConfirmedAt,
		Amount:     eligibility.BorrowAmount,
		AccountID:  acc.AccountID,
	}, nil
}

func (u *Usecase) balance(ctx context.Context, addr string) (decimal.Decimal, error) {
	rctx, cancel := context.WithTimeout(ctx, u.readTimeout)
	defer cancel()
	return u.Gateway.GetBalance(rctx, addr)
}

func (u *Usecase) flagUnconfirmed(ctx context.Context, log *slog.Logger, addr string, cause error) {
	hash := ledger.TxHashOf(cause)
	err := u.Transactions.FlagUnconfirmed(ctx, &transaction.Unconfirmed{
		TxHash:  hash,
		Address: addr,
		Kind:    transaction.KindBorrow,
		Amount:  eligibility.BorrowAmount,
		Reason:  cause.Error(),
	})
	if err != nil {
		log.Error("flag unconfirmed borrow failed", "tx_hash", hash, "err", err)
		return
	}
	u.Metrics.RecordUnconfirmed(string(transaction.KindBorrow))
}

// LastBorrowed reports the stored confirmation time of the requester's last
// borrow, nil when it never borrowed.
func (u *Usecase) LastBorrowed(ctx context.Context, email, address string) (*time.Time, error) {
	acc, err := u.Registry.Account(ctx, email, address)
	if err != nil {
		return nil, err
	}
	return acc.LastBorrowedAt, nil
}
