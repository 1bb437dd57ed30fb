package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Storefront    StorefrontConfig    `mapstructure:"storefront"`
	Ads           AdsConfig           `mapstructure:"ads"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// StorefrontConfig selects the active platform/store pair and the purchase
// lifecycle behavior.
type StorefrontConfig struct {
	Platform                string          `mapstructure:"platform"`
	Store                   string          `mapstructure:"store"`
	CatalogPath             string          `mapstructure:"catalog_path"`
	BundleID                string          `mapstructure:"bundle_id"`
	ConfirmationPolicy      string          `mapstructure:"confirmation_policy"`
	ConfirmDelay            time.Duration   `mapstructure:"confirm_delay"`
	ValidateReceipts        bool            `mapstructure:"validate_receipts"`
	EnablePayouts           bool            `mapstructure:"enable_payouts"`
	DeveloperPayload        string          `mapstructure:"developer_payload"`
	Fake                    FakeStoreConfig `mapstructure:"fake"`
	CircuitBreakerThreshold int             `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration   `mapstructure:"circuit_breaker_timeout"`
}

// FakeStoreConfig tunes the in-process fake store used in development and
// editor-style builds.
type FakeStoreConfig struct {
	Mode        string        `mapstructure:"mode"`
	Latency     time.Duration `mapstructure:"latency"`
	FailureRate float64       `mapstructure:"failure_rate"`
}

// AdsConfig tunes the ad-gated continuation flow.
type AdsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RewardCooldown time.Duration `mapstructure:"reward_cooldown"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("STOREKIT")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/storekit")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	switch c.Storefront.ConfirmationPolicy {
	case "immediate", "deferred":
	default:
		errs = append(errs, fmt.Errorf("storefront.confirmation_policy must be immediate or deferred, got %q", c.Storefront.ConfirmationPolicy))
	}
	if c.Storefront.ConfirmDelay <= 0 {
		errs = append(errs, fmt.Errorf("storefront.confirm_delay must be positive"))
	}
	if c.Storefront.Fake.FailureRate < 0 || c.Storefront.Fake.FailureRate > 1 {
		errs = append(errs, fmt.Errorf("storefront.fake.failure_rate must be between 0 and 1"))
	}
	if c.Ads.RewardCooldown <= 0 {
		errs = append(errs, fmt.Errorf("ads.reward_cooldown must be positive"))
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("database.password required in production"))
		}
		if c.Storefront.Store == "fake" {
			errs = append(errs, fmt.Errorf("storefront.store cannot be fake in production"))
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "storekit")
	v.SetDefault("database.database", "storekit")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Storefront defaults
	v.SetDefault("storefront.platform", "editor")
	v.SetDefault("storefront.store", "fake")
	v.SetDefault("storefront.catalog_path", "config/catalog.json")
	v.SetDefault("storefront.bundle_id", "")
	v.SetDefault("storefront.confirmation_policy", "immediate")
	v.SetDefault("storefront.confirm_delay", "5s")
	v.SetDefault("storefront.validate_receipts", false)
	v.SetDefault("storefront.enable_payouts", true)
	v.SetDefault("storefront.fake.mode", "always_succeed")
	v.SetDefault("storefront.fake.latency", "100ms")
	v.SetDefault("storefront.fake.failure_rate", 0.0)
	v.SetDefault("storefront.circuit_breaker_threshold", 10)
	v.SetDefault("storefront.circuit_breaker_timeout", "30s")

	// Ads defaults
	v.SetDefault("ads.enabled", true)
	v.SetDefault("ads.reward_cooldown", "15s")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "storekit-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
