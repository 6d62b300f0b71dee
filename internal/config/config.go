// Package config loads the core's configuration via Viper (env vars with
// defaults, optional config file), grounded on the teacher's
// internal/config/config.go.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the availability and booking core.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Port        int            `mapstructure:"port"`
	LogLevel    string         `mapstructure:"log_level"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	NATS        NATSConfig     `mapstructure:"nats"`
	Core        CoreConfig     `mapstructure:"core"`

	NotificationServiceURL string `mapstructure:"notification_service_url"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// CoreConfig exposes the constants §4.4/§4.5 name explicitly, so the lock
// TTL, staleness window, and horizon sizes are tunable without a rebuild.
type CoreConfig struct {
	LockTTLSeconds          int `mapstructure:"lock_ttl_seconds"`
	StaleLockSeconds        int `mapstructure:"stale_lock_seconds"`
	GenerationHorizonDays   int `mapstructure:"generation_horizon_days"`    // max span for a single generate() call (<=90)
	BulkReplaceRegenDays    int `mapstructure:"bulk_replace_regen_days"`    // rolling window for bulk-replace's "added" slots (30)
	SlotBatchSize           int `mapstructure:"slot_batch_size"`            // max rows per insert/block batch (<=100)
	PublicSlotPageTTLSecs   int `mapstructure:"public_slot_page_ttl_secs"`
	PatternsCacheTTLSecs    int `mapstructure:"patterns_cache_ttl_secs"`    // not read: the pattern engine caches listings for a fixed 120 s
	ScheduledHorizonRunDays int `mapstructure:"scheduled_horizon_run_days"` // days the background scheduler extends the horizon by, each run
}

// Load reads configuration from an optional config file, then environment
// variables, falling back to the defaults set below.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvPrefix("")
	viper.AutomaticEnv()

	viper.BindEnv("environment", "ENVIRONMENT")
	viper.BindEnv("port", "PORT")
	viper.BindEnv("log_level", "LOG_LEVEL")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("redis.url", "REDIS_URL")
	viper.BindEnv("nats.url", "NATS_URL")
	viper.BindEnv("notification_service_url", "NOTIFICATION_SERVICE_URL")
	viper.BindEnv("core.lock_ttl_seconds", "LOCK_TTL_SECONDS")
	viper.BindEnv("core.stale_lock_seconds", "STALE_LOCK_SECONDS")
	viper.BindEnv("core.generation_horizon_days", "GENERATION_HORIZON_DAYS")
	viper.BindEnv("core.bulk_replace_regen_days", "BULK_REPLACE_REGEN_DAYS")
	viper.BindEnv("core.slot_batch_size", "SLOT_BATCH_SIZE")
	viper.BindEnv("core.public_slot_page_ttl_secs", "PUBLIC_SLOT_PAGE_TTL_SECONDS")
	viper.BindEnv("core.patterns_cache_ttl_secs", "PATTERNS_CACHE_TTL_SECONDS")
	viper.BindEnv("core.scheduled_horizon_run_days", "SCHEDULED_HORIZON_RUN_DAYS")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("port", 8080)
	viper.SetDefault("log_level", "info")

	viper.SetDefault("database.url", "postgres://localhost:5432/availability_core?sslmode=disable")
	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("notification_service_url", "")

	viper.SetDefault("core.lock_ttl_seconds", 30)
	viper.SetDefault("core.stale_lock_seconds", 25)
	viper.SetDefault("core.generation_horizon_days", 90)
	viper.SetDefault("core.bulk_replace_regen_days", 30)
	viper.SetDefault("core.slot_batch_size", 100)
	viper.SetDefault("core.public_slot_page_ttl_secs", 30)
	viper.SetDefault("core.patterns_cache_ttl_secs", 120)
	viper.SetDefault("core.scheduled_horizon_run_days", 60)
}
