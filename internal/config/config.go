package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	LockLocal = "local"
	LockRedis = "redis"

	LedgerEthereum = "ethereum"
	LedgerMemory   = "memory"
)

type Config struct {
	AppPort   string
	APIPrefix string
	LogLevel  string

	DBDriver   string
	MySQLHost  string
	MySQLPort  string
	MySQLDB    string
	MySQLUser  string
	MySQLPass  string
	SQLitePath string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	LockBackend  string
	LockTTLSecs  int
	LedgerDriver string

	EthRPCURL         string
	EthPrivateKey     string
	EthChainID        int64
	TreasuryContract  string
	LedgerGasLimit    uint64
	ConfirmTimeoutSec int

	MemoryLedgerOwner    string
	MemoryLedgerTreasury decimal.Decimal

	NatsURL     string
	NatsSubject string

	MetricsEnabled     bool
	OwnerGateEnabled   bool
	AutoCreateAccounts bool
	CORSAllowedOrigins []string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getbool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

// Load reads the environment, after merging a .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		APIPrefix: getenv("API_PREFIX", "/api"),
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),

		DBDriver:   strings.ToLower(getenv("DB_DRIVER", DriverMySQL)),
		MySQLHost:  getenv("MYSQL_HOST", "mysql"),
		MySQLPort:  getenv("MYSQL_PORT", "3306"),
		MySQLDB:    getenv("MYSQL_DB", "faucet"),
		MySQLUser:  getenv("MYSQL_USER", "faucet"),
		MySQLPass:  getenv("MYSQL_PASS", "faucet"),
		SQLitePath: getenv("SQLITE_PATH", "faucet.db"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:      getint("REDIS_DB", 0),
		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		LockBackend:  strings.ToLower(getenv("LOCK_BACKEND", LockLocal)),
		LockTTLSecs:  getint("LOCK_TTL_SECONDS", 300),
		LedgerDriver: strings.ToLower(getenv("LEDGER_DRIVER", LedgerEthereum)),

		EthRPCURL:         getenv("ETH_RPC_URL", ""),
		EthPrivateKey:     getenv("ETH_PRIVATE_KEY", ""),
		TreasuryContract:  getenv("TREASURY_CONTRACT_ADDRESS", ""),
		ConfirmTimeoutSec: getint("LEDGER_CONFIRM_TIMEOUT_SECONDS", 120),

		MemoryLedgerOwner: getenv("MEMORY_LEDGER_OWNER", ""),

		NatsURL:     getenv("NATS_URL", ""),
		NatsSubject: getenv("NATS_SUBJECT", "faucet.transactions.confirmed"),

		MetricsEnabled:     getbool("METRICS_ENABLED", true),
		OwnerGateEnabled:   getbool("OWNER_GATE_ENABLED", true),
		AutoCreateAccounts: getbool("FAUCET_AUTO_CREATE_ACCOUNTS", true),
	}
	if v := os.Getenv("ETH_CHAIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.EthChainID = n
		}
	}
	if v := os.Getenv("LEDGER_GAS_LIMIT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.LedgerGasLimit = n
		}
	}
	if v := os.Getenv("MEMORY_LEDGER_TREASURY_BALANCE"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			c.MemoryLedgerTreasury = d
		}
	}
	for _, o := range strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.CORSAllowedOrigins = append(c.CORSAllowedOrigins, o)
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("API_PREFIX %q must start with /", c.APIPrefix)
	}

	switch c.DBDriver {
	case DriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}

	switch c.LockBackend {
	case LockLocal, LockRedis:
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}
	if c.LockTTLSecs <= 0 {
		return errors.New("LOCK_TTL_SECONDS must be positive")
	}

	switch c.LedgerDriver {
	case LedgerEthereum:
		if c.EthRPCURL == "" || c.EthPrivateKey == "" || c.TreasuryContract == "" {
			return errors.New("missing ledger config (ETH_RPC_URL/ETH_PRIVATE_KEY/TREASURY_CONTRACT_ADDRESS)")
		}
	case LedgerMemory:
	default:
		return fmt.Errorf("unknown LEDGER_DRIVER %q", c.LedgerDriver)
	}
	if c.ConfirmTimeoutSec <= 0 {
		return errors.New("LEDGER_CONFIRM_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// DSN is the connection string for the configured DB_DRIVER.
func (c *Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLitePath
	}
	return c.MySQLDSN()
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }
func (c *Config) LockTTL() time.Duration { return time.Duration(c.LockTTLSecs) * time.Second }
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutSec) * time.Second
}

// drainMargin covers recording a confirmed submission after the ledger wait ends.
const drainMargin = 30 * time.Second

// DrainTimeout bounds graceful shutdown. In-flight submissions may wait the
// full confirmation bound and must still be recorded, so it never ends first.
func (c *Config) DrainTimeout() time.Duration {
	return c.ConfirmTimeout() + drainMargin
}
