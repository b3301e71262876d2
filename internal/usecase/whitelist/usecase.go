package whitelist

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

type Deps struct {
	Registry     *registry.Usecase
	Whitelist    account.WhitelistRepository
	Transactions transaction.Repository
	UoW          uow.UnitOfWork
	Gateway      ledger.Gateway
	Locker       lock.Locker
	Publisher    transaction.Publisher
	Metrics      *metrics.MetricsCollector
	Logger       *slog.Logger
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

// SetWhitelist changes the ledger whitelist for an address, then mirrors the
// change locally and binds the address to the requester's account.
func (u *Usecase) SetWhitelist(ctx context.Context, in SetInput) (*SetDTO, error) {
	addr, err := account.NormalizeAddress(in.Address)
	if err != nil {
		return nil, err
	}
	// fails with ErrConflict before anything reaches the ledger
	acc, err := u.Registry.Lookup(ctx, in.Email, addr)
	if err != nil {
		return nil, err
	}
	log := u.Logger.With("account_id", acc.AccountID, "address", addr, "whitelisted", in.Whitelisted)

	release, err := u.Locker.Acquire(ctx, lock.WhitelistKey(acc.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	sctx := context.WithoutCancel(ctx)
	rc, err := u.Gateway.SetWhitelisted(sctx, addr, in.Whitelisted)
	if err != nil {
		if errors.Is(err, ledger.ErrTimeout) {
			hash := ledger.TxHashOf(err)
			ferr := u.Transactions.FlagUnconfirmed(sctx, &transaction.Unconfirmed{
				TxHash: hash, Address: addr, Kind: transaction.KindWhitelist, Amount: decimal.Zero, Reason: err.Error(),
			})
			if ferr != nil {
				log.Error("flag unconfirmed whitelist failed", "tx_hash", hash, "err", ferr)
			} else {
				u.Metrics.RecordUnconfirmed(string(transaction.KindWhitelist))
			}
		}
		log.Warn("whitelist change not confirmed", "err", err)
		return nil, err
	}

	rec := &transaction.Record{
		TxHash:      rc.TxHash,
		Address:     addr,
		Kind:        transaction.KindWhitelist,
		Amount:      decimal.Zero,
		ConfirmedAt: rc.ConfirmedAt,
	}
	inserted := false
	err = u.UoW.WithinTx(sctx, func(r uow.Repos) error {
		ok, err := r.Transactions.RecordIfNew(sctx, rec)
		if err != nil {
			return err
		}
		inserted = ok
		return r.Whitelist.Upsert(sctx, &account.WhitelistEntry{Address: addr, Whitelisted: in.Whitelisted, AccountID: acc.ID})
	})
	if err != nil {
		log.Error("whitelist confirmed but not recorded", "tx_hash", rc.TxHash, "err", err)
		return nil, fmt.Errorf("record whitelist %s: %w", rc.TxHash, err)
	}
	if inserted {
		u.Metrics.RecordTransaction(string(transaction.KindWhitelist))
		if err := u.Publisher.Publish(sctx, transaction.NewEvent(rec)); err != nil {
			log.Warn("publish whitelist event failed", "tx_hash", rc.TxHash, "err", err)
		}
	}

	if err := u.Registry.AssociateAddress(sctx, acc, addr); err != nil {
		// someone else bound the address while the ledger call was in flight
		return nil, fmt.Errorf("whitelist confirmed in %s: %w", rc.TxHash, err)
	}
	log.Info("whitelist confirmed", "tx_hash", rc.TxHash)

	return &SetDTO{TxHash: rc.TxHash, Address: addr, Whitelisted: in.Whitelisted, AccountID: acc.AccountID}, nil
}

// Status reads the whitelist flag from the ledger and refreshes the mirror.
// A whitelisted address is bound to the identified account.
func (u *Usecase) Status(ctx context.Context, email, address string) (*StatusDTO, error) {
	addr, err := account.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	ok, err := u.Gateway.IsWhitelisted(ctx, addr)
	if err != nil {
		return nil, err
	}

	var accountID uint64
	switch {
	case ok && email != "":
		acc, err := u.Registry.ResolveRequester(ctx, email, addr)
		if err != nil {
			return nil, err
		}
		accountID = acc.ID
	default:
		if acc, err := u.Registry.ResolveByAddress(ctx, addr); err == nil {
			accountID = acc.ID
		}
	}

	if err := u.Whitelist.Upsert(ctx, &account.WhitelistEntry{Address: addr, Whitelisted: ok, AccountID: accountID}); err != nil {
		u.Logger.Warn("whitelist mirror refresh failed", "address", addr, "err", err)
	}
	return &StatusDTO{Address: addr, Whitelisted: ok}, nil
}
