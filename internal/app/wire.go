package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/StabilityNexus/Fate/internal/blob/s3"
	"github.com/StabilityNexus/Fate/internal/cache/memory"
	"github.com/StabilityNexus/Fate/internal/cache/redis"
	"github.com/StabilityNexus/Fate/internal/config"
	"github.com/StabilityNexus/Fate/internal/crypto"
	"github.com/StabilityNexus/Fate/internal/domain"
	"github.com/StabilityNexus/Fate/internal/metrics"
	"github.com/StabilityNexus/Fate/internal/notify"
	"github.com/StabilityNexus/Fate/internal/platform/pyth"
	"github.com/StabilityNexus/Fate/internal/platform/sui"
	"github.com/StabilityNexus/Fate/internal/server/handler"
	"github.com/StabilityNexus/Fate/internal/store/postgres"
	"github.com/StabilityNexus/Fate/internal/wallet"
)

// Dependencies bundles every concrete dependency the run modes need. Optional
// backends are nil when disabled.
type Dependencies struct {
	Chain  *sui.Client
	Wallet *wallet.Wallet
	// Oracle is nil when trading is disabled.
	Oracle domain.PriceOracle

	// Stores
	PoolStore  domain.PoolStore
	TxStore    domain.TxStore
	AuditStore domain.AuditStore

	// Caches
	SnapshotCache domain.SnapshotCache
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	Archiver domain.SnapshotArchiver

	Notifier *notify.Notifier
	Metrics  *metrics.Metrics

	// Checks are reported by the health endpoint.
	Checks map[string]handler.Check
}

// needsArchive returns true for modes that write snapshot archives.
func needsArchive(mode string) bool {
	return mode == "archive" || mode == "full"
}

// Wire constructs all concrete dependency implementations from cfg and returns
// them together with a cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Checks: make(map[string]handler.Check)}

	// --- Chain, wallet and oracle ---
	deps.Chain = sui.NewClient(cfg.Chain.RPCURL,
		sui.WithTimeout(cfg.Chain.RequestTimeout.Duration),
		sui.WithMaxRetries(cfg.Chain.MaxRetries),
	)

	w, err := wallet.FromKeySource(crypto.KeySource{
		PrivateKey:       cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	}, deps.Chain, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: wallet: %w", err)
	}
	deps.Wallet = w

	if cfg.TradingEnabled() {
		hermes := pyth.NewHermesClient(cfg.Oracle.HermesURL, cfg.Chain.RequestTimeout.Duration)
		deps.Oracle = pyth.NewUpdater(pyth.Config{
			PythStateID:     cfg.Oracle.PythStateID,
			WormholeStateID: cfg.Oracle.WormholeStateID,
			ClockID:         cfg.Chain.ClockID,
			DefaultFeedID:   cfg.Oracle.DefaultFeedID,
			GasBudget:       cfg.Oracle.UpdateGasBudget,
		}, hermes, deps.Chain, deps.Wallet, logger)
	} else {
		logger.WarnContext(ctx, "wire: trading disabled, package_id or pyth_state_id missing")
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.PoolStore = postgres.NewPoolStore(pool)
		deps.TxStore = postgres.NewTxStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.Checks["postgres"] = pgClient.Ping
		logger.InfoContext(ctx, "wire: postgres connected")
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SnapshotCache = redis.NewSnapshotCache(redisClient, cfg.Pool.SnapshotTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.Checks["redis"] = redisClient.Ping
		logger.InfoContext(ctx, "wire: redis connected")
	} else {
		deps.SignalBus = memory.NewSignalBus()
	}

	// --- S3 ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), s3blob.NewReader(s3Client), deps.AuditStore)
		deps.Checks["s3"] = s3Client.Health
		logger.InfoContext(ctx, "wire: s3 configured", slog.String("bucket", s3Client.Bucket()))
	} else if needsArchive(cfg.Mode) {
		logger.WarnContext(ctx, "wire: s3 disabled, snapshot archiving is off")
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Metrics ---
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New(nil, cfg.Metrics.Namespace)
	}

	return deps, cleanup, nil
}
