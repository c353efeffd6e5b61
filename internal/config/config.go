// Package config defines the top-level configuration for the fate pool
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FATE_* environment variables.
type Config struct {
	Chain    ChainConfig    `toml:"chain"`
	Oracle   OracleConfig   `toml:"oracle"`
	Pool     PoolConfig     `toml:"pool"`
	Assets   []AssetConfig  `toml:"assets"`
	Wallet   WalletConfig   `toml:"wallet"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ChainConfig holds the Sui node endpoint and prediction pool package
// parameters.
type ChainConfig struct {
	RPCURL          string   `toml:"rpc_url"`
	PackageID       string   `toml:"package_id"`
	ClockID         string   `toml:"clock_id"`
	RequestTimeout  duration `toml:"request_timeout"`
	MaxRetries      int      `toml:"max_retries"`
	DiscoveryLimit  int      `toml:"discovery_limit"`
	TradeGasBudget  uint64   `toml:"trade_gas_budget"`
	CreateGasBudget uint64   `toml:"create_gas_budget"`
	// BalanceReserve is the mist kept aside for gas when checking a buy.
	BalanceReserve uint64 `toml:"balance_reserve"`
}

// OracleConfig holds Pyth/Hermes parameters.
type OracleConfig struct {
	HermesURL       string `toml:"hermes_url"`
	PythStateID     string `toml:"pyth_state_id"`
	WormholeStateID string `toml:"wormhole_state_id"`
	DefaultFeedID   string `toml:"default_feed_id"`
	UpdateGasBudget uint64 `toml:"update_gas_budget"`
}

// PoolConfig holds snapshot derivation and refresh parameters.
type PoolConfig struct {
	// PriceScale divides the raw current_price to get a display price.
	PriceScale float64 `toml:"price_scale"`
	// FeeUnit is one of raw, percent, bps and only affects API display.
	FeeUnit            string   `toml:"fee_unit"`
	RefreshInterval    duration `toml:"refresh_interval"`
	SnapshotTTL        duration `toml:"snapshot_ttl"`
	EnrichConcurrency  int      `toml:"enrich_concurrency"`
	ArchiveInterval    duration `toml:"archive_interval"`
	RefreshLockTimeout duration `toml:"refresh_lock_timeout"`
}

// AssetConfig maps a Pyth price feed id to a display name and symbol.
type AssetConfig struct {
	FeedID string `toml:"feed_id"`
	Name   string `toml:"name"`
	Symbol string `toml:"symbol"`
	Pair   string `toml:"pair"`
}

// WalletConfig holds the signing key location for the service wallet.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit is the number of requests per client per RateWindow.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// Wormhole state object on Sui testnet, shared by every Pyth deployment there.
const defaultWormholeStateID = "0x31358d198147da50db32eda2562951d53973a0c0ad5ed738e9b17d88b213d790"

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:          "https://fullnode.testnet.sui.io:443",
			ClockID:         "0x0000000000000000000000000000000000000000000000000000000000000006",
			RequestTimeout:  duration{30 * time.Second},
			MaxRetries:      3,
			DiscoveryLimit:  50,
			TradeGasBudget:  100_000_000,
			CreateGasBudget: 11_000_000,
			BalanceReserve:  100_000_000,
		},
		Oracle: OracleConfig{
			HermesURL:       "https://hermes-beta.pyth.network",
			WormholeStateID: defaultWormholeStateID,
			DefaultFeedID:   "0x50c67b3fd225db8912a424dd4baed60ffdde625ed2feaaf283724f9608fea266",
			UpdateGasBudget: 50_000_000,
		},
		Pool: PoolConfig{
			PriceScale:         1e9,
			FeeUnit:            "raw",
			RefreshInterval:    duration{time.Minute},
			SnapshotTTL:        duration{2 * time.Minute},
			EnrichConcurrency:  8,
			ArchiveInterval:    duration{time.Hour},
			RefreshLockTimeout: duration{30 * time.Second},
		},
		Assets: []AssetConfig{
			{FeedID: "0xf9c0172ba10dfa4d19088d94f5bf61d3b54d5bd7483a322a982e1373ee8ea31b", Name: "Bitcoin", Symbol: "BTC", Pair: "BTC/USD"},
			{FeedID: "0xca80ba6dc32e08d06f1aa886011eed1d77c77be9eb761cc10d72b7d0a2fd57a6", Name: "Ethereum", Symbol: "ETH", Pair: "ETH/USD"},
			{FeedID: "0x73dc009953c83c944690037ea477df627657f45c14f16ad3a61089c5a3f9f4f2", Name: "Cardano", Symbol: "ADA", Pair: "ADA/USD"},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "fate",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "fate-snapshots",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"tx_succeeded", "tx_failed"},
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "fate",
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"indexer": true,
	"archive": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validFeeUnits = map[string]bool{
	"raw":     true,
	"percent": true,
	"bps":     true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found. A missing package id or Pyth
// state id is not an error; see TradingEnabled.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, indexer, archive, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ClockID == "" {
		errs = append(errs, "chain: clock_id must not be empty")
	}
	if c.Chain.MaxRetries < 0 {
		errs = append(errs, "chain: max_retries must be >= 0")
	}
	if c.Chain.DiscoveryLimit < 1 {
		errs = append(errs, "chain: discovery_limit must be >= 1")
	}
	if c.Chain.TradeGasBudget == 0 || c.Chain.CreateGasBudget == 0 {
		errs = append(errs, "chain: gas budgets must be > 0")
	}

	// Oracle
	if c.Oracle.HermesURL == "" {
		errs = append(errs, "oracle: hermes_url must not be empty")
	}
	if c.Oracle.WormholeStateID == "" {
		errs = append(errs, "oracle: wormhole_state_id must not be empty")
	}
	if c.Oracle.UpdateGasBudget == 0 {
		errs = append(errs, "oracle: update_gas_budget must be > 0")
	}

	// Pool
	if !(c.Pool.PriceScale > 0) {
		errs = append(errs, fmt.Sprintf("pool: price_scale must be > 0, got %v", c.Pool.PriceScale))
	}
	if !validFeeUnits[strings.ToLower(c.Pool.FeeUnit)] {
		errs = append(errs, fmt.Sprintf("pool: unknown fee_unit %q (valid: raw, percent, bps)", c.Pool.FeeUnit))
	}
	if c.Pool.EnrichConcurrency < 1 {
		errs = append(errs, "pool: enrich_concurrency must be >= 1")
	}
	if c.Pool.RefreshInterval.Duration <= 0 {
		errs = append(errs, "pool: refresh_interval must be positive")
	}
	if c.S3.Enabled && c.Pool.ArchiveInterval.Duration <= 0 {
		errs = append(errs, "pool: archive_interval must be positive when s3 is enabled")
	}

	for i, a := range c.Assets {
		if a.FeedID == "" || a.Symbol == "" {
			errs = append(errs, fmt.Sprintf("assets[%d]: feed_id and symbol are required", i))
		}
	}

	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be within 0..pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}
	if strings.EqualFold(c.Mode, "archive") && !c.S3.Enabled {
		errs = append(errs, "s3: must be enabled for mode archive")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// DiscoveryEnabled reports whether the package id needed for discovery is set.
func (c *Config) DiscoveryEnabled() bool {
	return strings.TrimSpace(c.Chain.PackageID) != ""
}

// TradingEnabled reports whether every identifier needed to submit price
// sensitive transactions is configured.
func (c *Config) TradingEnabled() bool {
	return c.DiscoveryEnabled() && strings.TrimSpace(c.Oracle.PythStateID) != ""
}

// WalletConfigured reports whether a signing key source is present.
func (c *Config) WalletConfigured() bool {
	return c.Wallet.PrivateKey != "" || c.Wallet.EncryptedKeyPath != ""
}
