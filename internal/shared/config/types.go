package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host                string   `mapstructure:"host" validate:"required"`
	Port                int      `mapstructure:"port" validate:"gte=1,lte=65535"`
	Mode                string   `mapstructure:"mode"`
	BaseURL             string   `mapstructure:"base_url" validate:"required,url"`
	AllowedOrigins      []string `mapstructure:"allowed_origins"`
	FrontendCallbackURL string   `mapstructure:"frontend_callback_url" validate:"required,url"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required"`
}

// VaultConfig holds the at-rest encryption settings shared by the state codec
// and the credential vault. The key is 32 bytes, hex encoded, loaded once at
// startup and never derived from request data.
type VaultConfig struct {
	EncryptionKey string `mapstructure:"encryption_key" validate:"required,len=64,hexadecimal"`
	KeyVersion    int    `mapstructure:"key_version" validate:"gte=1"`
}

// PlatformConfig identifies one OAuth provider. Loaded at startup, immutable.
type PlatformConfig struct {
	Name         string   `mapstructure:"name"`
	AuthURL      string   `mapstructure:"auth_url" validate:"required,url"`
	TokenURL     string   `mapstructure:"token_url" validate:"required,url"`
	ClientID     string   `mapstructure:"client_id" validate:"required"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
	// AuthStyle selects how credentials are presented to the token endpoint:
	// "params" (client_secret_post) or "header" (client_secret_basic).
	AuthStyle string `mapstructure:"auth_style" validate:"omitempty,oneof=params header"`
}

type AuthFlowConfig struct {
	// StateTTLMinutes bounds the lifetime of an issued state token.
	StateTTLMinutes int `mapstructure:"state_ttl_minutes"`
	// ExchangeTimeoutSeconds caps each outbound call to a provider token endpoint.
	ExchangeTimeoutSeconds int `mapstructure:"exchange_timeout_seconds"`
	// ExchangeMaxRetries bounds retries on transport-level exchange failures.
	ExchangeMaxRetries int `mapstructure:"exchange_max_retries"`
}

func (a *AuthFlowConfig) StateTTL() time.Duration {
	return time.Duration(a.StateTTLMinutes) * time.Minute
}

func (a *AuthFlowConfig) ExchangeTimeout() time.Duration {
	return time.Duration(a.ExchangeTimeoutSeconds) * time.Second
}

type RateLimitBucketConfig struct {
	Limit         int `mapstructure:"limit"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

func (b *RateLimitBucketConfig) Window() time.Duration {
	return time.Duration(b.WindowSeconds) * time.Second
}

type RateLimitConfig struct {
	Initiation RateLimitBucketConfig `mapstructure:"initiation"`
	Callback   RateLimitBucketConfig `mapstructure:"callback"`
	Refresh    RateLimitBucketConfig `mapstructure:"refresh"`
}

type RefreshConfig struct {
	// IntervalMinutes is the scheduler tick for the refresh pass.
	IntervalMinutes int `mapstructure:"interval_minutes"`
	// LookaheadHours selects credentials whose access token expires within
	// this window. Wide enough that transient failures get several passes
	// before the token actually expires.
	LookaheadHours int `mapstructure:"lookahead_hours"`
	// BatchSize caps how many credentials one pass will pick up.
	BatchSize int `mapstructure:"batch_size"`
	// Workers bounds refresh parallelism within one pass.
	Workers int `mapstructure:"workers"`
}

func (r *RefreshConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMinutes) * time.Minute
}

func (r *RefreshConfig) Lookahead() time.Duration {
	return time.Duration(r.LookaheadHours) * time.Hour
}
