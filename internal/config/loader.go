package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FATE_* environment variable overrides, and
// returns the final Config. A missing file is not an error: defaults plus the
// environment are used. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FATE_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "FATE_CHAIN_RPC_URL")
	setStr(&cfg.Chain.PackageID, "FATE_CHAIN_PACKAGE_ID")
	setStr(&cfg.Chain.PackageID, "NEXT_PUBLIC_PACKAGE_ID") // compatibility alias
	setStr(&cfg.Chain.ClockID, "FATE_CHAIN_CLOCK_ID")
	setDuration(&cfg.Chain.RequestTimeout, "FATE_CHAIN_REQUEST_TIMEOUT")
	setInt(&cfg.Chain.MaxRetries, "FATE_CHAIN_MAX_RETRIES")
	setInt(&cfg.Chain.DiscoveryLimit, "FATE_CHAIN_DISCOVERY_LIMIT")
	setUint64(&cfg.Chain.TradeGasBudget, "FATE_CHAIN_TRADE_GAS_BUDGET")
	setUint64(&cfg.Chain.CreateGasBudget, "FATE_CHAIN_CREATE_GAS_BUDGET")
	setUint64(&cfg.Chain.BalanceReserve, "FATE_CHAIN_BALANCE_RESERVE")

	// ── Oracle ──
	setStr(&cfg.Oracle.HermesURL, "FATE_ORACLE_HERMES_URL")
	setStr(&cfg.Oracle.PythStateID, "FATE_ORACLE_PYTH_STATE_ID")
	setStr(&cfg.Oracle.PythStateID, "NEXT_PUBLIC_PYTH_STATE_ID") // compatibility alias
	setStr(&cfg.Oracle.WormholeStateID, "FATE_ORACLE_WORMHOLE_STATE_ID")
	setStr(&cfg.Oracle.DefaultFeedID, "FATE_ORACLE_DEFAULT_FEED_ID")
	setUint64(&cfg.Oracle.UpdateGasBudget, "FATE_ORACLE_UPDATE_GAS_BUDGET")

	// ── Pool ──
	setFloat64(&cfg.Pool.PriceScale, "FATE_POOL_PRICE_SCALE")
	setStr(&cfg.Pool.FeeUnit, "FATE_POOL_FEE_UNIT")
	setDuration(&cfg.Pool.RefreshInterval, "FATE_POOL_REFRESH_INTERVAL")
	setDuration(&cfg.Pool.SnapshotTTL, "FATE_POOL_SNAPSHOT_TTL")
	setInt(&cfg.Pool.EnrichConcurrency, "FATE_POOL_ENRICH_CONCURRENCY")
	setDuration(&cfg.Pool.ArchiveInterval, "FATE_POOL_ARCHIVE_INTERVAL")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "FATE_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "FATE_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "FATE_WALLET_KEY_PASSWORD")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "FATE_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "FATE_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "FATE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FATE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FATE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FATE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FATE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FATE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FATE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FATE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FATE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "FATE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FATE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FATE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FATE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FATE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FATE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FATE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "FATE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "FATE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FATE_S3_REGION")
	setStr(&cfg.S3.Bucket, "FATE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FATE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FATE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FATE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FATE_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "FATE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FATE_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "FATE_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "FATE_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "FATE_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "FATE_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FATE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FATE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FATE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FATE_NOTIFY_EVENTS")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "FATE_METRICS_ENABLED")
	setStr(&cfg.Metrics.Namespace, "FATE_METRICS_NAMESPACE")

	// ── Top-level ──
	setStr(&cfg.Mode, "FATE_MODE")
	setStr(&cfg.LogLevel, "FATE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
