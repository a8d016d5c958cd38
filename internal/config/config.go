package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	BaseAPI          string        `mapstructure:"base_api"`
	APIPrefix        string        `mapstructure:"api_prefix"`
	TimeoutSeconds   int64         `mapstructure:"timeout_seconds"`
	Timeout          time.Duration `mapstructure:"-"`
	TenantID         string        `mapstructure:"tenant_id"`
	EnforceWhitelist bool          `mapstructure:"enforce_whitelist"`

	TokenStore                  string        `mapstructure:"token_store"`
	TokenStorePath              string        `mapstructure:"token_store_path"`
	TokenTTLSeconds             int64         `mapstructure:"token_ttl_seconds"`
	RefreshTokenTTLSeconds      int64         `mapstructure:"refresh_token_ttl_seconds"`
	TokenCleanupIntervalSeconds int64         `mapstructure:"token_cleanup_interval_seconds"`
	TokenTTL                    time.Duration `mapstructure:"-"`
	RefreshTokenTTL             time.Duration `mapstructure:"-"`
	TokenCleanupInterval        time.Duration `mapstructure:"-"`

	RoutesFile     string `mapstructure:"routes_file"`
	PublishersFile string `mapstructure:"publishers_file"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "admin-console")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("base_api", "http://localhost:48080")
	v.SetDefault("api_prefix", "/admin-api/")
	v.SetDefault("timeout_seconds", 10)
	v.SetDefault("tenant_id", "1")
	v.SetDefault("enforce_whitelist", false)
	v.SetDefault("token_store", "bbolt")
	v.SetDefault("token_store_path", "./data/token.db")
	v.SetDefault("token_ttl_seconds", int64((30*time.Minute)/time.Second))
	v.SetDefault("refresh_token_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("token_cleanup_interval_seconds", int64((time.Hour)/time.Second))
	v.SetDefault("routes_file", "./configs/routes.yaml")
	v.SetDefault("publishers_file", "")

	v.AutomaticEnv()

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.BaseAPI = strings.TrimRight(strings.TrimSpace(cfg.BaseAPI), "/")
	if cfg.BaseAPI == "" {
		return nil, fmt.Errorf("invalid base_api (must not be empty)")
	}
	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid timeout_seconds (must be positive seconds)")
	}
	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	if cfg.TokenTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid token_ttl_seconds (must be positive seconds)")
	}
	if cfg.RefreshTokenTTLSeconds < 0 {
		return nil, fmt.Errorf("invalid refresh_token_ttl_seconds (must not be negative)")
	}
	if cfg.TokenCleanupIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid token_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.TokenTTL = time.Duration(cfg.TokenTTLSeconds) * time.Second
	cfg.RefreshTokenTTL = time.Duration(cfg.RefreshTokenTTLSeconds) * time.Second
	cfg.TokenCleanupInterval = time.Duration(cfg.TokenCleanupIntervalSeconds) * time.Second

	return &cfg, nil
}

// BaseURL joins the API origin with the fixed admin prefix.
func (c *Config) BaseURL() string {
	prefix := strings.Trim(strings.TrimSpace(c.APIPrefix), "/")
	if prefix == "" {
		return c.BaseAPI + "/"
	}
	return c.BaseAPI + "/" + prefix + "/"
}
