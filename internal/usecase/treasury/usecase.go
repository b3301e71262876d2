package treasury

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"faucet-backend/internal/domain/account"
	"faucet-backend/internal/domain/ledger"
	"faucet-backend/internal/domain/lock"
	"faucet-backend/internal/domain/transaction"
	"faucet-backend/internal/domain/uow"
	"faucet-backend/internal/usecase/registry"
	"faucet-backend/pkg/metrics"

	"github.com/shopspring/decimal"
)

var ErrTreasuryNotConfigured = errors.New("treasury address is not configured")

type Deps struct {
	Registry     *registry.Usecase
	Transactions transaction.Repository
	UoW          uow.UnitOfWork
	Gateway      ledger.Gateway
	Locker       lock.Locker
	Publisher    transaction.Publisher
	Metrics      *metrics.MetricsCollector
	Logger       *slog.Logger
	// TreasuryAddress is the contract whose balance TreasuryBalance reports.
	TreasuryAddress string
}

type Usecase struct{ Deps }

func NewUsecase(d Deps) *Usecase {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Publisher == nil {
		d.Publisher = transaction.NopPublisher{}
	}
	return &Usecase{Deps: d}
}

// Lend sends amount into the treasury on behalf of the address and credits the
// account's lent total once the ledger confirms.
func (u *Usecase) Lend(ctx context.Context, in LendInput) (*TxDTO, error) {
	if !in.Amount.IsPositive() {
		return nil, transaction.ErrInvalidAmount
	}
	addr, err := account.NormalizeAddress(in.Address)
	if err != nil {
		return nil, err
	}
	acc, err := u.Registry.ResolveRequester(ctx, "", addr)
	if err != nil {
		return nil, err
	}
	log := u.Logger.With("account_id", acc.AccountID, "address", addr, "amount", in.Amount.String())

	release, err := u.Locker.Acquire(ctx, lock.LendKey(acc.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	sctx := context.WithoutCancel(ctx)
	rc, err := u.Gateway.SubmitLend(sctx, addr, in.Amount)
	if err != nil {
		u.failed(sctx, log, transaction.KindLend, addr, in.Amount, err)
		return nil, err
	}

	rec := &transaction.Record{TxHash: rc.TxHash, Address: addr, Kind: transaction.KindLend, Amount: in.Amount, ConfirmedAt: rc.ConfirmedAt}
	inserted := false
	err = u.UoW.WithinAccountTx(sctx, acc.ID, func(r uow.Repos, a *account.Account) error {
		ok, err := r.Transactions.RecordIfNew(sctx, rec)
		if err != nil || !ok {
			return err
		}
		inserted = true
		return r.Accounts.SetLentAmount(sctx, a.ID, a.LentAmount.Add(in.Amount))
	})
	if err != nil {
		log.Error("lend confirmed but not recorded", "tx_hash", rc.TxHash, "err", err)
		return nil, fmt.Errorf("record lend %s: %w", rc.TxHash, err)
	}
	u.confirmed(sctx, log, rec, inserted)
	return toDTO(rec), nil
}

// Withdraw draws amount from the treasury to the owner. The record carries the
// sending address reported by the ledger.
func (u *Usecase) Withdraw(ctx context.Context, amount decimal.Decimal) (*TxDTO, error) {
	if !amount.IsPositive() {
		return nil, transaction.ErrInvalidAmount
	}
	log := u.Logger.With("amount", amount.String())

	sctx := context.WithoutCancel(ctx)
	rc, err := u.Gateway.SubmitWithdraw(sctx, amount)
	if err != nil {
		u.failed(sctx, log, transaction.KindWithdraw, u.TreasuryAddress, amount, err)
		return nil, err
	}

	rec := &transaction.Record{TxHash: rc.TxHash, Address: rc.From, Kind: transaction.KindWithdraw, Amount: amount, ConfirmedAt: rc.ConfirmedAt}
	inserted := false
	err = u.UoW.WithinTx(sctx, func(r uow.Repos) error {
		ok, err := r.Transactions.RecordIfNew(sctx, rec)
		inserted = ok
		return err
	})
	if err != nil {
		log.Error("withdraw confirmed but not recorded", "tx_hash", rc.TxHash, "err", err)
		return nil, fmt.Errorf("record withdraw %s: %w", rc.TxHash, err)
	}
	u.confirmed(sctx, log, rec, inserted)
	return toDTO(rec), nil
}

func (u *Usecase) failed(ctx context.Context, log *slog.Logger, kind transaction.Kind, addr string, amount decimal.Decimal, cause error) {
	log.Warn("treasury submission not confirmed", "kind", kind, "err", cause)
	if !errors.Is(cause, ledger.ErrTimeout) {
		return
	}
	hash := ledger.TxHashOf(cause)
	err := u.Transactions.FlagUnconfirmed(ctx, &transaction.Unconfirmed{
		TxHash: hash, Address: addr, Kind: kind, Amount: amount, Reason: cause.Error(),
	})
	if err != nil {
		log.Error("flag unconfirmed failed", "kind", kind, "tx_hash", hash, "err", err)
		return
	}
	u.Metrics.RecordUnconfirmed(string(kind))
}

func (u *Usecase) confirmed(ctx context.Context, log *slog.Logger, rec *transaction.Record, inserted bool) {
	log.Info("treasury submission confirmed", "kind", rec.Kind, "tx_hash", rec.TxHash)
	if !inserted {
		return
	}
	u.Metrics.RecordTransaction(string(rec.Kind))
	if err := u.Publisher.Publish(ctx, transaction.NewEvent(rec)); err != nil {
		log.Warn("publish event failed", "tx_hash", rec.TxHash, "err", err)
	}
}

func (u *Usecase) WalletBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	addr, err := account.NormalizeAddress(address)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Gateway.GetBalance(ctx, addr)
}

func (u *Usecase) TreasuryBalance(ctx context.Context) (decimal.Decimal, error) {
	if u.TreasuryAddress == "" {
		return decimal.Zero, ErrTreasuryNotConfigured
	}
	return u.Gateway.GetBalance(ctx, u.TreasuryAddress)
}

func (u *Usecase) IsOwner(ctx context.Context, address string) (bool, error) {
	addr, err := account.NormalizeAddress(address)
	if err != nil {
		return false, err
	}
	return u.Gateway.IsOwnerAddress(ctx, addr)
}

// History lists recorded transactions, newest first. An empty address lists all.
func (u *Usecase) History(ctx context.Context, address string, limit, offset int) ([]transaction.Record, error) {
	if address == "" {
		return u.Transactions.List(ctx, limit, offset)
	}
	addr, err := account.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return u.Transactions.ListByAddress(ctx, addr, limit, offset)
}

// Unconfirmed lists submissions waiting for manual reconciliation.
func (u *Usecase) Unconfirmed(ctx context.Context, limit int) ([]transaction.Unconfirmed, error) {
	return u.Transactions.ListUnconfirmed(ctx, limit)
}

func toDTO(r *transaction.Record) *TxDTO {
	return &TxDTO{TxHash: r.TxHash, Address: r.Address, Amount: r.Amount, ConfirmedAt: r.ConfirmedAt}
}
