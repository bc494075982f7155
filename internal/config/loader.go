package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies RWALEDGER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known RWALEDGER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "RWALEDGER_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "RWALEDGER_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "RWALEDGER_DATABASE_HOST")
	setInt(&cfg.Database.Port, "RWALEDGER_DATABASE_PORT")
	setStr(&cfg.Database.Database, "RWALEDGER_DATABASE_NAME")
	setStr(&cfg.Database.User, "RWALEDGER_DATABASE_USER")
	setStr(&cfg.Database.Password, "RWALEDGER_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "RWALEDGER_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "RWALEDGER_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "RWALEDGER_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "RWALEDGER_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "RWALEDGER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "RWALEDGER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "RWALEDGER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "RWALEDGER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "RWALEDGER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "RWALEDGER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "RWALEDGER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "RWALEDGER_S3_REGION")
	setStr(&cfg.S3.Bucket, "RWALEDGER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "RWALEDGER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "RWALEDGER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "RWALEDGER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "RWALEDGER_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "RWALEDGER_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Prefix, "RWALEDGER_ARCHIVE_PREFIX")
	setInt(&cfg.Archive.RetentionDays, "RWALEDGER_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "RWALEDGER_ARCHIVE_CRON")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "RWALEDGER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "RWALEDGER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "RWALEDGER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "RWALEDGER_NOTIFY_EVENTS")

	// ── Ledger policy ──
	setInt64(&cfg.Ledger.MinPledgeValue, "RWALEDGER_LEDGER_MIN_PLEDGE_VALUE")
	setInt64(&cfg.Ledger.MaxPledgeValue, "RWALEDGER_LEDGER_MAX_PLEDGE_VALUE")
	setInt64(&cfg.Ledger.LTVCeilingBps, "RWALEDGER_LEDGER_LTV_CEILING_BPS")
	setInt64(&cfg.Ledger.CollateralizationMinBps, "RWALEDGER_LEDGER_COLLATERALIZATION_MIN_BPS")
	setInt64(&cfg.Ledger.ReserveRatioBps, "RWALEDGER_LEDGER_RESERVE_RATIO_BPS")
	setDuration(&cfg.Ledger.PledgeExpiry, "RWALEDGER_LEDGER_PLEDGE_EXPIRY")
	setDuration(&cfg.Ledger.RevaluationInterval, "RWALEDGER_LEDGER_REVALUATION_INTERVAL")
	setDuration(&cfg.Ledger.RedemptionDelay, "RWALEDGER_LEDGER_REDEMPTION_DELAY")
	setStr(&cfg.Ledger.TreasuryAccount, "RWALEDGER_LEDGER_TREASURY_ACCOUNT")
	setStringSlice(&cfg.Ledger.Admins, "RWALEDGER_LEDGER_ADMINS")

	// ── Server ──
	setInt(&cfg.Server.Port, "RWALEDGER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "RWALEDGER_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.Mode, "RWALEDGER_MODE")
	setStr(&cfg.LogLevel, "RWALEDGER_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
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
