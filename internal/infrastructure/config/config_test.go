package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "test",
			Password: "test",
			Database: "test_db",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Storefront: StorefrontConfig{
			Platform:           "android",
			Store:              "GooglePlay",
			ConfirmationPolicy: "deferred",
			ConfirmDelay:       5 * time.Second,
		},
		Ads: AdsConfig{
			Enabled:        true,
			RewardCooldown: 15 * time.Second,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too low", 0},
		{"port negative", -1},
		{"port too high", 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestConfig_Validate_InvalidTimeouts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ReadTimeout = 0
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read_timeout")

	cfg = validConfig()
	cfg.Server.WriteTimeout = 0
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "write_timeout")
}

func TestConfig_Validate_MissingDatabaseHost(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
}

func TestConfig_Validate_InvalidRedisPort(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Port = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis.port")
}

func TestConfig_Validate_InvalidConfirmationPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		valid  bool
	}{
		{"immediate", "immediate", true},
		{"deferred", "deferred", true},
		{"empty", "", false},
		{"typo", "defered", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Storefront.ConfirmationPolicy = tt.policy

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "confirmation_policy")
			}
		})
	}
}

func TestConfig_Validate_InvalidConfirmDelay(t *testing.T) {
	cfg := validConfig()
	cfg.Storefront.ConfirmDelay = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "confirm_delay")
}

func TestConfig_Validate_InvalidFailureRate(t *testing.T) {
	cfg := validConfig()
	cfg.Storefront.Fake.FailureRate = 1.5

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failure_rate")
}

func TestConfig_Validate_InvalidRewardCooldown(t *testing.T) {
	cfg := validConfig()
	cfg.Ads.RewardCooldown = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reward_cooldown")
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	require.Error(t, err)

	errStr := err.Error()
	assert.Contains(t, errStr, "server.port")
	assert.Contains(t, errStr, "read_timeout")
	assert.Contains(t, errStr, "write_timeout")
	assert.Contains(t, errStr, "database.host")
	assert.Contains(t, errStr, "redis.port")
	assert.Contains(t, errStr, "confirmation_policy")
	assert.Contains(t, errStr, "reward_cooldown")
}

func TestConfig_Validate_FakeStoreRejectedInProduction(t *testing.T) {
	t.Setenv("ENV", "production")

	cfg := validConfig()
	cfg.Storefront.Store = "fake"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be fake in production")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.example.com",
		Port:     5432,
		User:     "app_user",
		Password: "secret",
		Database: "storekit_db",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.example.com port=5432 user=app_user password=secret dbname=storekit_db sslmode=require",
		cfg.DatabaseDSN(),
	)
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "redis.example.com", Port: 6379}
	assert.Equal(t, "redis.example.com:6379", cfg.RedisAddr())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "fake", cfg.Storefront.Store)
	assert.Equal(t, "immediate", cfg.Storefront.ConfirmationPolicy)
	assert.Equal(t, 5*time.Second, cfg.Storefront.ConfirmDelay)
	assert.Equal(t, 15*time.Second, cfg.Ads.RewardCooldown)
	assert.Equal(t, "storekit-1", cfg.InstanceID)
}
