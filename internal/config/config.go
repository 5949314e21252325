// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Bot      BotConfig      `mapstructure:"bot"`
	Checkin  CheckinConfig  `mapstructure:"checkin"`
	Referral ReferralConfig `mapstructure:"referral"`
	Rewards  RewardsConfig  `mapstructure:"rewards"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	// ClaimRateLimit is the number of claim requests allowed per user per
	// minute. Zero disables the limiter.
	ClaimRateLimit int `mapstructure:"claim_rate_limit"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis configuration. An empty Addr disables Redis.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	CatalogTTL time.Duration `mapstructure:"catalog_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// AuthConfig holds identity verification settings.
type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	JWTIssuer      string `mapstructure:"jwt_issuer"`
	InternalAPIKey string `mapstructure:"internal_api_key"`
}

// BotConfig holds Telegram bot configuration. An empty Token disables the bot.
type BotConfig struct {
	Token          string        `mapstructure:"token"`
	PollerTimeout  time.Duration `mapstructure:"poller_timeout"`
	WhitelistChats []int64       `mapstructure:"whitelist_chats"`
}

// CheckinConfig holds daily check-in configuration.
type CheckinConfig struct {
	Reward      int64         `mapstructure:"reward"`
	Timezone    string        `mapstructure:"timezone"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// Location resolves the configured timezone.
func (c *CheckinConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load timezone %q", c.Timezone)
	}
	return loc, nil
}

// ReferralConfig holds referral program configuration.
type ReferralConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Points  int64  `mapstructure:"points"`
}

// RewardsConfig holds rewards catalog configuration.
type RewardsConfig struct {
	Goal int64 `mapstructure:"goal"`
}

// JobsConfig holds background job schedules in cron syntax.
// An empty schedule disables the job.
type JobsConfig struct {
	CatalogRefresh string `mapstructure:"catalog_refresh"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, AUTH_JWT_SECRET, BOT_TOKEN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can provide all config.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Checkin.Reward <= 0 {
		return errors.Errorf("checkin.reward must be positive, got %d", c.Checkin.Reward)
	}
	if c.Checkin.MaxAttempts < 1 {
		return errors.Errorf("checkin.max_attempts must be at least 1, got %d", c.Checkin.MaxAttempts)
	}
	if c.Rewards.Goal <= 0 {
		return errors.Errorf("rewards.goal must be positive, got %d", c.Rewards.Goal)
	}
	if _, err := c.Checkin.Location(); err != nil {
		return err
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.claim_rate_limit", 10)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "rewards")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "rewards")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.catalog_ttl", "10m")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "")
	v.SetDefault("auth.internal_api_key", "")

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.poller_timeout", "10s")

	v.SetDefault("checkin.reward", 5)
	v.SetDefault("checkin.timezone", "UTC")
	v.SetDefault("checkin.max_attempts", 3)
	v.SetDefault("checkin.lock_timeout", "5s")

	v.SetDefault("referral.base_url", "https://app.flowwahub.com/signup")
	v.SetDefault("referral.points", 25)

	v.SetDefault("rewards.goal", 5000)

	v.SetDefault("jobs.catalog_refresh", "@every 5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// IsChatAllowed checks if a chat ID is in the bot whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Bot.WhitelistChats) == 0 {
		return true
	}
	for _, id := range c.Bot.WhitelistChats {
		if id == chatID {
			return true
		}
	}
	return false
}
