package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/lottery-onboarding/internal/domain/step"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Indexer   IndexerConfig   `mapstructure:"indexer"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Amounts   AmountsConfig   `mapstructure:"amounts"`
	Poller    PollerConfig    `mapstructure:"poller"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Mode         string        `mapstructure:"mode"`
}

// DatabaseConfig holds the audit history database configuration
type DatabaseConfig struct {
	Path             string        `mapstructure:"path"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	HistoryRetention int           `mapstructure:"history_retention"`
}

// LedgerConfig holds the JSON-RPC and signing configuration
type LedgerConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	ChainID             int64         `mapstructure:"chain_id"`
	PrivateKey          string        `mapstructure:"private_key"`
	Account             string        `mapstructure:"account"`
	LogFromBlock        uint64        `mapstructure:"log_from_block"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	GasHeadroomPercent  uint64        `mapstructure:"gas_headroom_percent"`
}

// IndexerConfig holds the subgraph endpoint configuration
type IndexerConfig struct {
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// ContractsConfig holds the deployed contract addresses
type ContractsConfig struct {
	Core       string `mapstructure:"core"`
	Collateral string `mapstructure:"collateral"`
	Lottery    string `mapstructure:"lottery"`
	FeeToken   string `mapstructure:"fee_token"`
}

// AmountsConfig holds write amounts as whole-token decimal strings
type AmountsConfig struct {
	Deposit     string `mapstructure:"deposit"`
	Delegate    string `mapstructure:"delegate"`
	Leverage    string `mapstructure:"leverage"`
	Mint        string `mapstructure:"mint"`
	FeeFunding  string `mapstructure:"fee_funding"`
	PoolWeight  string `mapstructure:"pool_weight"`
	PoolMaxDebt string `mapstructure:"pool_max_debt"`
}

// PollerConfig holds the background refresh configuration
type PollerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
// An empty path skips the file; a .env file next to the working directory is
// loaded first when present.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from a .env file without overriding the
// process environment
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.mode", "release")

	// Database defaults
	v.SetDefault("database.path", "data/onboarding.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.history_retention", 1000)

	// Ledger defaults
	v.SetDefault("ledger.rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("ledger.chain_id", 13370)
	v.SetDefault("ledger.receipt_poll_interval", 2*time.Second)
	v.SetDefault("ledger.gas_headroom_percent", 20)

	// Indexer defaults
	v.SetDefault("indexer.url", "http://127.0.0.1:8000/subgraphs/name/core")
	v.SetDefault("indexer.timeout", 15*time.Second)
	v.SetDefault("indexer.max_attempts", 3)

	// Amount defaults, whole tokens
	v.SetDefault("amounts.deposit", "20")
	v.SetDefault("amounts.delegate", "20")
	v.SetDefault("amounts.leverage", "1")
	v.SetDefault("amounts.mint", "4")
	v.SetDefault("amounts.fee_funding", "1")
	v.SetDefault("amounts.pool_weight", "1")
	v.SetDefault("amounts.pool_max_debt", "1")

	// Poller defaults
	v.SetDefault("poller.enabled", false)
	v.SetDefault("poller.interval", 30*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Secrets and endpoints come from the environment
	_ = v.BindEnv("ledger.private_key", "LEDGER_PRIVATE_KEY")
	_ = v.BindEnv("ledger.rpc_url", "LEDGER_RPC_URL")
	_ = v.BindEnv("ledger.account", "LEDGER_ACCOUNT")
	_ = v.BindEnv("indexer.url", "INDEXER_URL")
	_ = v.BindEnv("contracts.core", "CONTRACT_CORE")
	_ = v.BindEnv("contracts.collateral", "CONTRACT_COLLATERAL")
	_ = v.BindEnv("contracts.lottery", "CONTRACT_LOTTERY")
	_ = v.BindEnv("contracts.fee_token", "CONTRACT_FEE_TOKEN")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Ledger.RPCURL == "" {
		return fmt.Errorf("ledger.rpc_url is required")
	}
	if c.Ledger.ChainID <= 0 {
		return fmt.Errorf("ledger.chain_id must be positive")
	}
	if c.Ledger.PrivateKey == "" && c.Ledger.Account == "" {
		return fmt.Errorf("ledger.private_key or ledger.account is required")
	}
	if c.Ledger.Account != "" && !common.IsHexAddress(c.Ledger.Account) {
		return fmt.Errorf("ledger.account is not an address: %s", c.Ledger.Account)
	}

	if c.Indexer.URL == "" {
		return fmt.Errorf("indexer.url is required")
	}

	contracts := []struct{ key, addr string }{
		{"contracts.core", c.Contracts.Core},
		{"contracts.collateral", c.Contracts.Collateral},
		{"contracts.lottery", c.Contracts.Lottery},
		{"contracts.fee_token", c.Contracts.FeeToken},
	}
	for _, ct := range contracts {
		if ct.addr == "" {
			return fmt.Errorf("%s is required", ct.key)
		}
		if !common.IsHexAddress(ct.addr) {
			return fmt.Errorf("%s is not an address: %s", ct.key, ct.addr)
		}
	}

	if _, err := c.Amounts.Parse(); err != nil {
		return err
	}

	if c.Poller.Enabled && c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be positive when the poller is enabled")
	}

	return nil
}

// ContractMap returns the configured addresses keyed by contract
func (c ContractsConfig) ContractMap() map[step.Contract]step.Address {
	return map[step.Contract]step.Address{
		step.ContractCore:       step.Address(c.Core),
		step.ContractCollateral: step.Address(c.Collateral),
		step.ContractLottery:    step.Address(c.Lottery),
		step.ContractFeeToken:   step.Address(c.FeeToken),
	}
}

// Parse converts the decimal amounts to 18-decimal base units
func (a AmountsConfig) Parse() (step.Amounts, error) {
	var out step.Amounts
	fields := []struct {
		key string
		raw string
		dst **big.Int
	}{
		{"amounts.deposit", a.Deposit, &out.Deposit},
		{"amounts.delegate", a.Delegate, &out.Delegate},
		{"amounts.leverage", a.Leverage, &out.Leverage},
		{"amounts.mint", a.Mint, &out.Mint},
		{"amounts.fee_funding", a.FeeFunding, &out.FeeFunding},
		{"amounts.pool_weight", a.PoolWeight, &out.PoolWeight},
		{"amounts.pool_max_debt", a.PoolMaxDebt, &out.PoolMaxDebt},
	}

	for _, f := range fields {
		n, err := baseUnits(f.raw)
		if err != nil {
			return step.Amounts{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = n
	}

	return out, nil
}

var unitRat = new(big.Rat).SetInt(step.Units(1))

func baseUnits(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("amount is required")
	}

	r, ok := new(big.Rat).SetString(raw)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if r.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive: %s", raw)
	}

	r.Mul(r, unitRat)
	if !r.IsInt() {
		return nil, fmt.Errorf("amount %q has more than 18 decimals", raw)
	}
	return new(big.Int).Set(r.Num()), nil
}
