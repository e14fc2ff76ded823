package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Queue      QueueConfig
	Auth       AuthConfig
	Tenant     TenantConfig
	Collection CollectionConfig
	Fetcher    FetcherConfig
	Cache      CacheConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
	Tracing    TracingConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	URLExpiry       time.Duration
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
	Prefetch int
}

// AuthConfig holds bearer token configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// TenantConfig holds host resolution configuration
type TenantConfig struct {
	BaseDomain     string
	OperatorLabels []string
}

// CollectionConfig holds collection policy configuration
type CollectionConfig struct {
	DefaultVideoLimit int
}

// FetcherConfig holds yt-dlp configuration
type FetcherConfig struct {
	YtDlpPath        string
	WorkDir          string
	ThumbnailTimeout time.Duration
	CaptionTimeout   time.Duration
}

// CacheConfig holds public view cache configuration
type CacheConfig struct {
	Enabled    bool
	GalleryTTL time.Duration
	ProfileTTL time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// MetricsConfig holds metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds Jaeger configuration
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RPS   int
	Burst int
}

// Load reads configuration from an optional .env file, the config file and environment variables
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	return validation.Errors{
		"auth.jwtSecret": validation.Validate(c.Auth.JWTSecret,
			validation.Required.Error("must be set"),
			validation.RuneLength(16, 0).Error("must be at least 16 characters"),
		),
		"tenant.baseDomain": validation.Validate(c.Tenant.BaseDomain, validation.Required),
		"server.port":       validation.Validate(c.Server.Port, validation.Min(1), validation.Max(65535)),
		"collection.defaultVideoLimit": validation.Validate(c.Collection.DefaultVideoLimit,
			validation.Min(1),
		),
	}.Filter()
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "60s")
	v.SetDefault("server.shutdownTimeout", "10s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "vidfaq")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxConns", 25)
	v.SetDefault("database.minConns", 5)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Storage defaults
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKeyID", "minioadmin")
	v.SetDefault("storage.secretAccessKey", "minioadmin")
	v.SetDefault("storage.bucketName", "vidfaq")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.useSSL", false)
	v.SetDefault("storage.urlExpiry", "1h")

	// Queue defaults
	v.SetDefault("queue.host", "localhost")
	v.SetDefault("queue.port", 5672)
	v.SetDefault("queue.user", "guest")
	v.SetDefault("queue.password", "guest")
	v.SetDefault("queue.vhost", "/")
	v.SetDefault("queue.prefetch", 2)

	// Auth defaults
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", "24h")

	// Tenant defaults
	v.SetDefault("tenant.baseDomain", "vidfaq.example")
	v.SetDefault("tenant.operatorLabels", []string{"app", "vidfaq"})

	// Collection defaults
	v.SetDefault("collection.defaultVideoLimit", 10)

	// Fetcher defaults
	v.SetDefault("fetcher.ytDlpPath", "yt-dlp")
	v.SetDefault("fetcher.workDir", os.TempDir())
	v.SetDefault("fetcher.thumbnailTimeout", "30s")
	v.SetDefault("fetcher.captionTimeout", "2m")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.galleryTTL", "5m")
	v.SetDefault("cache.profileTTL", "1m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "vidfaq")
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")

	// Rate limit defaults
	v.SetDefault("rateLimit.rps", 20)
	v.SetDefault("rateLimit.burst", 40)
}
