package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "github.com/lumina-dash/lumina/internal/shared/config"
	"github.com/lumina-dash/lumina/internal/shared/utils"
)

type Config struct {
	Server    sharedConfig.ServerConfig                   `mapstructure:"server"`
	Database  sharedConfig.DatabaseConfig                 `mapstructure:"database"`
	Logger    sharedConfig.LoggerConfig                   `mapstructure:"logger"`
	Redis     sharedConfig.RedisConfig                    `mapstructure:"redis"`
	JWT       sharedConfig.JWTConfig                      `mapstructure:"jwt"`
	Vault     sharedConfig.VaultConfig                    `mapstructure:"vault"`
	AuthFlow  sharedConfig.AuthFlowConfig                 `mapstructure:"auth_flow"`
	RateLimit sharedConfig.RateLimitConfig                `mapstructure:"rate_limit"`
	Refresh   sharedConfig.RefreshConfig                  `mapstructure:"refresh"`
	Platforms map[string]sharedConfig.PlatformConfig      `mapstructure:"platforms" validate:"dive"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables.
func Load(env string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath("../../configs")

	viper.SetEnvPrefix("LUMINA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Platform names are map keys in YAML; mirror them into the structs so a
	// config never carries a mismatched name.
	for name, pc := range config.Platforms {
		pc.Name = name
		config.Platforms[name] = pc
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration.
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func validate(cfg *Config) error {
	if err := utils.ValidateStruct(cfg); err != nil {
		return err
	}
	// len=64 hex means 32 decoded bytes, which is what the AEAD requires.
	if _, err := hex.DecodeString(cfg.Vault.EncryptionKey); err != nil {
		return fmt.Errorf("vault.encryption_key is not valid hex: %w", err)
	}
	buckets := map[string]sharedConfig.RateLimitBucketConfig{
		"initiation": cfg.RateLimit.Initiation,
		"callback":   cfg.RateLimit.Callback,
		"refresh":    cfg.RateLimit.Refresh,
	}
	for name, b := range buckets {
		if b.Limit > 0 && b.WindowSeconds <= 0 {
			return fmt.Errorf("rate_limit.%s: limit %d requires a positive window_seconds", name, b.Limit)
		}
	}
	return nil
}

// EncryptionKey returns the decoded 32-byte vault key.
func (c *Config) EncryptionKey() []byte {
	key, err := hex.DecodeString(c.Vault.EncryptionKey)
	if err != nil {
		// validate() rejects bad keys at load time
		panic(fmt.Sprintf("config: encryption key unexpectedly invalid: %v", err))
	}
	return key
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("server.frontend_callback_url", "http://localhost:3000/oauth/callback")

	viper.SetDefault("database.driver", "mysql")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.username", "root")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "lumina_dev")
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.conn_max_lifetime", 60)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("jwt.secret", "change-me-in-production")

	viper.SetDefault("vault.key_version", 1)

	viper.SetDefault("auth_flow.state_ttl_minutes", 10)
	viper.SetDefault("auth_flow.exchange_timeout_seconds", 15)
	viper.SetDefault("auth_flow.exchange_max_retries", 3)

	// Initiation is the attacker's primary lever; keep it tightest.
	// Callbacks see legitimate browser retries; give them more headroom.
	viper.SetDefault("rate_limit.initiation.limit", 10)
	viper.SetDefault("rate_limit.initiation.window_seconds", 60)
	viper.SetDefault("rate_limit.callback.limit", 30)
	viper.SetDefault("rate_limit.callback.window_seconds", 60)
	viper.SetDefault("rate_limit.refresh.limit", 6)
	viper.SetDefault("rate_limit.refresh.window_seconds", 60)

	viper.SetDefault("refresh.interval_minutes", 5)
	viper.SetDefault("refresh.lookahead_hours", 72)
	viper.SetDefault("refresh.batch_size", 100)
	viper.SetDefault("refresh.workers", 4)
}
