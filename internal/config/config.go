package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"supperclub/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Backup        BackupConfig        `yaml:"backup"`
	Redis         RedisConfig         `yaml:"redis"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
	API           APIConfig           `yaml:"api"`
	Booking       BookingConfig       `yaml:"booking"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Audit         AuditConfig         `yaml:"audit"`
	Exports       ExportConfig        `yaml:"exports"`
	Seed          SeedConfig          `yaml:"seed"`
}

type APIConfig struct {
	HTTP           APIHTTPConfig      `yaml:"http"`
	GRPC           APIGRPCConfig      `yaml:"grpc"`
	Auth           APIAuthConfig      `yaml:"auth"`
	RateLimit      APIRateLimitConfig `yaml:"rate_limit"`
	IdempotencyTTL time.Duration      `yaml:"idempotency_ttl"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

// APIAuthConfig configures bearer-token verification. Tokens are HS256 JWTs
// whose subject is the user id and whose role claim is the account role.
type APIAuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	Leeway    time.Duration `yaml:"leeway"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BookingConfig struct {
	MaxAdvanceDays              int  `yaml:"max_advance_days"`
	AllowRescheduleAfterDecline bool `yaml:"allow_reschedule_after_decline"`
}

type NotificationsConfig struct {
	QueueKey      string        `yaml:"queue_key"`
	DeadLetterKey string        `yaml:"dead_letter_key"`
	Workers       int           `yaml:"workers"`
	PopTimeout    time.Duration `yaml:"pop_timeout"`
	BufferSize    int           `yaml:"buffer_size"`
	Retry         RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type SeedConfig struct {
	CouponsFile string `yaml:"coupons_file"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// BackupConfig schedules ledger snapshots. Schedule is a Go duration; empty means daily.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.API.HTTP.Enabled && (c.API.Auth.JWTSecret == "" || c.API.Auth.JWTSecret == "CHANGE_ME") {
		return errors.New("api.auth.jwt_secret is required when the http api is enabled")
	}

	if c.Booking.MaxAdvanceDays < 1 {
		return fmt.Errorf("booking.max_advance_days must be positive, got %d", c.Booking.MaxAdvanceDays)
	}

	if c.API.RateLimit.RPS < 0 || c.API.RateLimit.Burst < 0 {
		return errors.New("api.rate_limit values must not be negative")
	}

	if c.Notifications.Retry.BackoffFactor < 1 {
		return fmt.Errorf("notifications.retry.backoff_factor must be >= 1, got %v", c.Notifications.Retry.BackoffFactor)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "supperclub"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.Auth.Issuer == "" {
		c.API.Auth.Issuer = c.App.Name
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.API.IdempotencyTTL == 0 {
		c.API.IdempotencyTTL = 24 * time.Hour
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}

	n := &c.Notifications
	if n.QueueKey == "" {
		n.QueueKey = "notifications:queue"
	}
	if n.DeadLetterKey == "" {
		n.DeadLetterKey = "notifications:deadletter"
	}
	if n.Workers == 0 {
		n.Workers = 1
	}
	if n.PopTimeout == 0 {
		n.PopTimeout = time.Second
	}
	if n.BufferSize == 0 {
		n.BufferSize = 256
	}
	if n.Retry.MaxRetries == 0 {
		n.Retry.MaxRetries = 5
	}
	if n.Retry.InitialDelay == 0 {
		n.Retry.InitialDelay = 2 * time.Second
	}
	if n.Retry.MaxDelay == 0 {
		n.Retry.MaxDelay = time.Minute
	}
	if n.Retry.BackoffFactor == 0 {
		n.Retry.BackoffFactor = 2
	}

	if c.Backup.Enabled && c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
