// Package config defines the top-level configuration for the ledger
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by RWALEDGER_* environment variables.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
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
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig holds cold-storage export parameters.
type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Prefix  string `toml:"prefix"`
	// RetentionDays is how far back settled redemptions and audit rows
	// are kept in Postgres before an archive run exports them.
	RetentionDays int `toml:"retention_days"`
	// Cron schedules automatic archive runs in server mode, in standard
	// 5-field format (e.g. "0 3 1 * *"). Empty disables the schedule;
	// archive mode and the admin API still run on demand.
	Cron string `toml:"cron"`
}

// NotifyConfig holds operator alerting parameters. All channels are
// optional; with none configured, alerts are dropped.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
	// Events filters which ledger operations produce alerts. Empty
	// allows all alertable events.
	Events []string `toml:"events"`
}

// LedgerConfig holds the issuance policy applied at startup. Monetary
// values are int64 minor units; ratios are basis points out of 10000.
type LedgerConfig struct {
	MinPledgeValue          int64 `toml:"min_pledge_value"`
	MaxPledgeValue          int64 `toml:"max_pledge_value"`
	LTVCeilingBps           int64 `toml:"ltv_ceiling_bps"`
	CollateralizationMinBps int64 `toml:"collateralization_min_bps"`
	ReserveRatioBps         int64 `toml:"reserve_ratio_bps"`

	PledgeExpiry        duration `toml:"pledge_expiry"`
	RevaluationInterval duration `toml:"revaluation_interval"`
	RedemptionDelay     duration `toml:"redemption_delay"`

	TreasuryAccount string `toml:"treasury_account"`
	// Admins are bootstrapped with the admin role on first start; after
	// that, role grants live in the ledger itself.
	Admins []string `toml:"admins"`

	// CategoryLimits maps category name to its exposure limit. Categories
	// not listed get a zero limit and reject every verification.
	CategoryLimits map[string]int64 `toml:"category_limits"`
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
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APITokens maps bearer token to account name. Empty disables auth,
	// which is only sensible in local development.
	APITokens map[string]string `toml:"api_tokens"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "rwaledger",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "rwaledger-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       true,
			Prefix:        "archive",
			RetentionDays: 90,
		},
		Ledger: LedgerConfig{
			// Pledge bounds in minor units: 1000.00 to 100M.
			MinPledgeValue:          1_000_00,
			MaxPledgeValue:          100_000_000_00,
			LTVCeilingBps:           8_000,
			CollateralizationMinBps: 12_000,
			ReserveRatioBps:         500,
			PledgeExpiry:            duration{30 * 24 * time.Hour},
			RevaluationInterval:     duration{24 * time.Hour},
			RedemptionDelay:         duration{48 * time.Hour},
			TreasuryAccount:         "treasury",
			CategoryLimits: map[string]int64{
				"real_estate": 500_000_000_00,
				"commodities": 200_000_000_00,
				"bonds":       200_000_000_00,
				"equipment":   50_000_000_00,
				"inventory":   50_000_000_00,
				"other":       10_000_000_00,
			},
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"archive": true,
	"migrate": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, archive, migrate)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 is only required when archiving is on.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Ledger policy
	if c.Ledger.MinPledgeValue <= 0 {
		errs = append(errs, "ledger: min_pledge_value must be > 0")
	}
	if c.Ledger.MaxPledgeValue < c.Ledger.MinPledgeValue {
		errs = append(errs, "ledger: max_pledge_value must be >= min_pledge_value")
	}
	if c.Ledger.LTVCeilingBps <= 0 || c.Ledger.LTVCeilingBps > 10_000 {
		errs = append(errs, fmt.Sprintf("ledger: ltv_ceiling_bps must be 1-10000, got %d", c.Ledger.LTVCeilingBps))
	}
	if c.Ledger.CollateralizationMinBps < 10_000 {
		errs = append(errs, fmt.Sprintf("ledger: collateralization_min_bps must be >= 10000, got %d", c.Ledger.CollateralizationMinBps))
	}
	if c.Ledger.ReserveRatioBps < 0 || c.Ledger.ReserveRatioBps > 10_000 {
		errs = append(errs, fmt.Sprintf("ledger: reserve_ratio_bps must be 0-10000, got %d", c.Ledger.ReserveRatioBps))
	}
	if c.Ledger.PledgeExpiry.Duration <= 0 {
		errs = append(errs, "ledger: pledge_expiry must be > 0")
	}
	if c.Ledger.RevaluationInterval.Duration <= 0 {
		errs = append(errs, "ledger: revaluation_interval must be > 0")
	}
	if c.Ledger.RedemptionDelay.Duration <= 0 {
		errs = append(errs, "ledger: redemption_delay must be > 0")
	}
	if strings.TrimSpace(c.Ledger.TreasuryAccount) == "" {
		errs = append(errs, "ledger: treasury_account must not be empty")
	}
	for name, limit := range c.Ledger.CategoryLimits {
		if limit < 0 {
			errs = append(errs, fmt.Sprintf("ledger: category_limits[%s] must be >= 0, got %d", name, limit))
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
