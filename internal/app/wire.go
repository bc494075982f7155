package app

import (
	"context"
	"fmt"

	s3blob "github.com/harborfin/rwaledger/internal/blob/s3"
	"github.com/harborfin/rwaledger/internal/cache/redis"
	"github.com/harborfin/rwaledger/internal/config"
	"github.com/harborfin/rwaledger/internal/domain"
	"github.com/harborfin/rwaledger/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	PledgeStore     domain.PledgeStore
	RedemptionStore domain.RedemptionStore
	BalanceStore    domain.BalanceStore
	RoleStore       domain.RoleStore
	AuditStore      domain.AuditStore

	// Redis
	ValuationCache domain.ValuationCache
	RateLimiter    domain.RateLimiter
	LockManager    domain.LockManager
	SignalBus      domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver
}

// needsRedis returns true for modes that use the signal bus, locks, and
// caches. Archive and migrate runs touch only Postgres and S3.
func needsRedis(mode string) bool {
	return mode == "server"
}

// needsS3 returns true when cold-storage archiving is reachable in the
// given mode.
func needsS3(mode string, cfg *config.Config) bool {
	return cfg.Archive.Enabled && mode != "migrate"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (every mode needs the durable stores) ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations || cfg.Mode == "migrate" {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PledgeStore = postgres.NewPledgeStore(pool)
	deps.RedemptionStore = postgres.NewRedemptionStore(pool)
	deps.BalanceStore = postgres.NewBalanceStore(pool)
	deps.RoleStore = postgres.NewRoleStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	if needsRedis(cfg.Mode) {
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

		deps.ValuationCache = redis.NewValuationCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 blob storage (only when archiving is reachable) ---
	if needsS3(cfg.Mode, cfg) {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			deps.AuditStore,
			deps.RedemptionStore,
			cfg.Archive.Prefix,
		)
	}

	return deps, cleanup, nil
}
