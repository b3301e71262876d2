// Package ethereum talks to the deployed treasury contract over JSON-RPC.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"faucet-backend/internal/domain/ledger"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

var _ ledger.Gateway = (*Gateway)(nil)

// Backend is the subset of an RPC client the gateway needs. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type Config struct {
	RPCURL         string
	PrivateKeyHex  string
	ChainID        int64
	Contract       string
	GasLimit       uint64
	ConfirmTimeout time.Duration
}

type Gateway struct {
	backend  Backend
	contract *bind.BoundContract
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	gasLimit uint64
	timeout  time.Duration
	log      *slog.Logger

	// one submission at a time so pending nonces never collide
	sendMu sync.Mutex
}

// Dial connects to cfg.RPCURL and binds the treasury contract.
func Dial(ctx context.Context, cfg Config, log *slog.Logger) (*Gateway, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	g, err := New(client, cfg, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	return g, nil
}

func New(backend Backend, cfg Config, log *slog.Logger) (*Gateway, error) {
	if log == nil {
		log = slog.Default()
	}
	if !common.IsHexAddress(cfg.Contract) {
		return nil, fmt.Errorf("invalid treasury contract address %q", cfg.Contract)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	parsed, err := parseTreasuryABI()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = 300000
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 2 * time.Minute
	}
	addr := common.HexToAddress(cfg.Contract)
	return &Gateway{
		backend:  backend,
		contract: bind.NewBoundContract(addr, parsed, backend, backend, backend),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  big.NewInt(cfg.ChainID),
		gasLimit: cfg.GasLimit,
		timeout:  cfg.ConfirmTimeout,
		log:      log,
	}, nil
}

// From is the signer address, lower-cased.
func (g *Gateway) From() string { return lower(g.from) }

func (g *Gateway) SubmitBorrow(ctx context.Context, address string) (*ledger.Receipt, error) {
	return g.submit(ctx, ledger.OpBorrow, nil, methodBorrow, common.HexToAddress(address))
}

func (g *Gateway) SubmitLend(ctx context.Context, _ string, amount decimal.Decimal) (*ledger.Receipt, error) {
	return g.submit(ctx, ledger.OpLend, ToWei(amount), methodLend)
}

func (g *Gateway) SubmitWithdraw(ctx context.Context, amount decimal.Decimal) (*ledger.Receipt, error) {
	return g.submit(ctx, ledger.OpWithdraw, nil, methodWithdraw, ToWei(amount))
}

func (g *Gateway) SetWhitelisted(ctx context.Context, address string, whitelisted bool) (*ledger.Receipt, error) {
	return g.submit(ctx, ledger.OpSetWhitelist, nil, methodSetWhitelist, common.HexToAddress(address), whitelisted)
}

func (g *Gateway) submit(ctx context.Context, op ledger.Op, value *big.Int, method string, params ...any) (*ledger.Receipt, error) {
	tx, err := g.send(ctx, value, method, params...)
	if err != nil {
		// never reached the mempool
		return nil, ledger.Rejected(op, err.Error())
	}
	hash := tx.Hash().Hex()
	g.log.Info("ledger submission sent", "op", op, "tx_hash", hash)

	wctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	rc, err := bind.WaitMined(wctx, g.backend, tx)
	if err != nil {
		// sent, but no terminal status: the outcome is unknown
		g.log.Warn("ledger confirmation missing", "op", op, "tx_hash", hash, "err", err)
		return nil, ledger.TimedOut(op, hash)
	}
	if rc.Status != types.ReceiptStatusSuccessful {
		return nil, &ledger.SubmissionError{Op: op, Kind: ledger.ErrRejected, Reason: "transaction reverted", TxHash: hash}
	}

	confirmedAt := time.Now().UTC()
	if h, err := g.backend.HeaderByNumber(wctx, rc.BlockNumber); err == nil {
		confirmedAt = time.Unix(int64(h.Time), 0).UTC()
	}
	return &ledger.Receipt{
		TxHash:      hash,
		From:        lower(g.from),
		Block:       rc.BlockNumber.Uint64(),
		ConfirmedAt: confirmedAt,
	}, nil
}

func (g *Gateway) send(ctx context.Context, value *big.Int, method string, params ...any) (*types.Transaction, error) {
	g.sendMu.Lock()
	defer g.sendMu.Unlock()

	opts, err := bind.NewKeyedTransactorWithChainID(g.key, g.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	opts.GasLimit = g.gasLimit
	opts.Value = value
	return g.contract.Transact(opts, method, params...)
}

func (g *Gateway) IsWhitelisted(ctx context.Context, address string) (bool, error) {
	var out []any
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodIsWhitelisted, common.HexToAddress(address)); err != nil {
		return false, unavailable(err)
	}
	if len(out) != 1 {
		return false, unavailable(errors.New("unexpected isWhitelistedAccount result"))
	}
	ok, _ := out[0].(bool)
	return ok, nil
}

func (g *Gateway) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	wei, err := g.backend.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, unavailable(err)
	}
	return FromWei(wei), nil
}

func (g *Gateway) IsOwnerAddress(ctx context.Context, address string) (bool, error) {
	var out []any
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodOwner); err != nil {
		return false, unavailable(err)
	}
	if len(out) != 1 {
		return false, unavailable(errors.New("unexpected owner result"))
	}
	owner, _ := out[0].(common.Address)
	return strings.EqualFold(owner.Hex(), address), nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
}

func lower(a common.Address) string { return strings.ToLower(a.Hex()) }
