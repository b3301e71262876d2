package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"faucet-backend/internal/adapter/bus"
	httpadp "faucet-backend/internal/adapter/http"
	ledgerAdapter "faucet-backend/internal/adapter/ledger"
	"faucet-backend/internal/adapter/ledger/ethereum"
	"faucet-backend/internal/adapter/ledger/memory"
	lockAdapter "faucet-backend/internal/adapter/lock"
	idem "faucet-backend/internal/adapter/middleware"
	repo "faucet-backend/internal/adapter/repository/mysql"
	"faucet-backend/internal/config"
	"faucet-backend/internal/domain/ledger"
	"faucet-backend/internal/domain/lock"
	"faucet-backend/internal/domain/transaction"
	"faucet-backend/internal/infrastructure/cache"
	"faucet-backend/internal/infrastructure/db"
	"faucet-backend/internal/usecase/borrow"
	"faucet-backend/internal/usecase/registry"
	"faucet-backend/internal/usecase/treasury"
	"faucet-backend/internal/usecase/whitelist"
	"faucet-backend/pkg/metrics"
)

func main() {
	cfg := config.Load()
	log := setupLogger(cfg.LogLevel)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("faucet stopped", "err", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func setupLogger(level string) *slog.Logger {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lv}))
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN(), db.LogLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if cfg.DBDriver == config.DriverSQLite {
		if err := repo.AutoMigrate(gdb); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		if cfg.LockBackend == config.LockRedis {
			return err
		}
		log.Warn("redis unavailable; idempotency disabled", "err", err)
		rdb = nil
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	mc := metrics.NewMetricsCollector(log)

	gw, treasuryAddr, err := openLedger(ctx, cfg, log)
	if err != nil {
		return err
	}
	gw = ledgerAdapter.NewInstrumented(gw, mc)

	var locker lock.Locker = lockAdapter.NewLocal()
	if cfg.LockBackend == config.LockRedis {
		locker = lockAdapter.NewRedis(rdb, cfg.LockTTL(), lockAdapter.WithLogger(log))
	}

	var pub transaction.Publisher = transaction.NopPublisher{}
	nc, err := bus.Connect(cfg.NatsURL, "faucet-backend")
	if err != nil {
		return err
	}
	if nc != nil {
		defer nc.Close()
		pub = bus.NewPublisher(nc, cfg.NatsSubject)
		log.Info("publishing confirmed transactions", "subject", cfg.NatsSubject)
	}

	accounts := repo.NewAccountRepository(gdb)
	txs := repo.NewTransactionRepository(gdb)
	tx := repo.NewGormUoW(gdb)
	reg := registry.NewUsecase(accounts, cfg.AutoCreateAccounts, log)

	borrowUC := borrow.NewUsecase(borrow.Deps{
		Registry: reg, Accounts: accounts, Transactions: txs, UoW: tx,
		Gateway: gw, Locker: locker, Publisher: pub, Metrics: mc, Logger: log,
	})
	whitelistUC := whitelist.NewUsecase(whitelist.Deps{
		Registry: reg, Whitelist: repo.NewWhitelistRepository(gdb), Transactions: txs, UoW: tx,
		Gateway: gw, Locker: locker, Publisher: pub, Metrics: mc, Logger: log,
	})
	treasuryUC := treasury.NewUsecase(treasury.Deps{
		Registry: reg, Transactions: txs, UoW: tx,
		Gateway: gw, Locker: locker, Publisher: pub, Metrics: mc, Logger: log,
		TreasuryAddress: treasuryAddr,
	})

	e := newEcho(cfg, log, mc)
	routes := httpadp.Routes{
		Prefix:    cfg.APIPrefix,
		Borrow:    httpadp.NewBorrowHandler(borrowUC, log),
		Whitelist: httpadp.NewWhitelistHandler(whitelistUC, log),
		Treasury:  httpadp.NewTreasuryHandler(treasuryUC, log),
		Logger:    log,
	}
	if cfg.OwnerGateEnabled {
		routes.Owners = treasuryUC
	} else {
		log.Warn("owner gate disabled; whitelist and withdraw are open")
	}
	if rdb != nil {
		routes.Mutating = append(routes.Mutating, idem.IdempotencyMiddleware(rdb, cfg.IdempotencyTTL(), log))
	}
	httpadp.Register(e, routes)

	return serve(ctx, e, ":"+cfg.AppPort, cfg.DrainTimeout(), log)
}

// openLedger returns the configured gateway and the address whose balance is
// the treasury balance.
func openLedger(ctx context.Context, cfg *config.Config, log *slog.Logger) (ledger.Gateway, string, error) {
	switch cfg.LedgerDriver {
	case config.LedgerMemory:
		opts := []memory.Option{memory.WithTreasuryBalance(cfg.MemoryLedgerTreasury)}
		if cfg.MemoryLedgerOwner != "" {
			opts = append(opts, memory.WithOwner(cfg.MemoryLedgerOwner))
		}
		mem := memory.New(opts...)
		log.Warn("using in-memory ledger", "owner", mem.Owner(), "treasury", mem.Treasury())
		return mem, mem.Treasury(), nil
	default:
		gw, err := ethereum.Dial(ctx, ethereum.Config{
			RPCURL:         cfg.EthRPCURL,
			PrivateKeyHex:  cfg.EthPrivateKey,
			ChainID:        cfg.EthChainID,
			Contract:       cfg.TreasuryContract,
			GasLimit:       cfg.LedgerGasLimit,
			ConfirmTimeout: cfg.ConfirmTimeout(),
		}, log)
		if err != nil {
			return nil, "", fmt.Errorf("dial ledger: %w", err)
		}
		return gw, strings.ToLower(cfg.TreasuryContract), nil
	}
}

func newEcho(cfg *config.Config, log *slog.Logger, mc *metrics.MetricsCollector) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				log.Error("request", append(attrs, "err", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	}))
	if len(cfg.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORSAllowedOrigins,
			AllowHeaders: []string{
				echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
				idem.HeaderRequestID, idem.HeaderRequestAt, idem.HeaderCaller,
				httpadp.HeaderSignature, httpadp.HeaderSignedAt,
			},
		}))
	}

	e.GET("/health", httpadp.NewHandler().Health)
	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(mc.GetHandler()))
	}
	return e
}

// serve runs e until ctx ends, then drains in-flight requests for up to drain.
func serve(ctx context.Context, e *echo.Echo, addr string, drain time.Duration, log *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("draining in-flight requests", "timeout", drain)
		sctx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		return e.Shutdown(sctx)
	})
	return g.Wait()
}
