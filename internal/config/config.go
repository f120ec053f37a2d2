package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultSessionSecret = "vblog-dev-secret"

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string        `mapstructure:"LISTEN_ADDR"`
	Port              string        `mapstructure:"PORT"`
	DatabaseDriver    string        `mapstructure:"DATABASE_DRIVER"`
	DatabasePath      string        `mapstructure:"DATABASE_PATH"`
	DatabaseDSN       string        `mapstructure:"DATABASE_DSN"`
	SessionSecret     string        `mapstructure:"SESSION_SECRET"`
	GinMode           string        `mapstructure:"GIN_MODE"`
	RedisAddr         string        `mapstructure:"REDIS_ADDR"`
	RenderCacheTTL    time.Duration `mapstructure:"RENDER_CACHE_TTL"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogFormat         string        `mapstructure:"LOG_FORMAT"`
	HighlightStyle    string        `mapstructure:"HIGHLIGHT_STYLE"`
	SuperRootUserName string        `mapstructure:"SUPER_ROOT_USER_NAME"`
	SuperRootPassword string        `mapstructure:"SUPER_ROOT_PASSWORD"`
}

// Load 读取 .env（如存在）、config.yml（如存在）与环境变量，并为缺失项提供默认值。
func Load() (AppConfig, error) {
	// .env 是可选的
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return AppConfig{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (AppConfig, error) {
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("LISTEN_ADDR", "")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_PATH", "vblog.db")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SESSION_SECRET", defaultSessionSecret)
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("RENDER_CACHE_TTL", "10m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("HIGHLIGHT_STYLE", "github")
	v.SetDefault("SUPER_ROOT_USER_NAME", "")
	v.SetDefault("SUPER_ROOT_PASSWORD", "")

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.trim()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = fmt.Sprintf(":%s", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c AppConfig) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.RenderCacheTTL < 0 {
		return errors.New("RENDER_CACHE_TTL must not be negative")
	}
	if (c.SuperRootUserName == "") != (c.SuperRootPassword == "") {
		return errors.New("SUPER_ROOT_USER_NAME and SUPER_ROOT_PASSWORD must be set together")
	}
	return nil
}

// UsesDefaultSecret reports whether sessions are signed with the built-in
// development secret. Callers warn about it outside debug mode.
func (c AppConfig) UsesDefaultSecret() bool {
	return c.SessionSecret == defaultSessionSecret
}

func (c *AppConfig) trim() {
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	c.Port = strings.TrimSpace(c.Port)
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	switch c.DatabaseDriver {
	case "sqlite3":
		c.DatabaseDriver = "sqlite"
	case "postgresql":
		c.DatabaseDriver = "postgres"
	}
	c.DatabasePath = strings.TrimSpace(c.DatabasePath)
	c.DatabaseDSN = strings.TrimSpace(c.DatabaseDSN)
	c.SessionSecret = strings.TrimSpace(c.SessionSecret)
	c.GinMode = strings.TrimSpace(c.GinMode)
	c.RedisAddr = strings.TrimSpace(c.RedisAddr)
	c.HighlightStyle = strings.TrimSpace(c.HighlightStyle)
	c.SuperRootUserName = strings.TrimSpace(c.SuperRootUserName)
	c.SuperRootPassword = strings.TrimSpace(c.SuperRootPassword)
}
