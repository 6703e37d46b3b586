package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// AppConfig bundles everything needed to run the service.
type AppConfig struct {
	ListenAddr      string `env:"LISTEN_ADDR"`
	Port            string `env:"PORT"`
	DatabasePath    string `env:"DATABASE_PATH"`
	GinMode         string `env:"GIN_MODE"`
	JWTSecret       string `env:"JWT_SECRET"`
	AccessTokenTTL  int    `env:"ACCESS_TOKEN_TTL_MINUTES"`
	RefreshTokenTTL int    `env:"REFRESH_TOKEN_TTL_HOURS"`
	SMTPHost        string `env:"SMTP_HOST"`
	SMTPPort        string `env:"SMTP_PORT"`
	SMTPUsername    string `env:"SMTP_USERNAME"`
	SMTPPassword    string `env:"SMTP_PASSWORD"`
	MailFrom        string `env:"MAIL_FROM"`
	RootEmail       string `env:"ROOT_EMAIL"`
	RootUsername    string `env:"ROOT_USERNAME"`
	RootPassword    string `env:"ROOT_PASSWORD"`
}

// Load reads the application config from the environment and fills in safe
// defaults for anything missing.
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = fmt.Sprintf(":%s", cfg.Port)
	}

	cfg.DatabasePath = strings.TrimSpace(cfg.DatabasePath)
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "backoffice.db"
	}

	cfg.GinMode = strings.TrimSpace(cfg.GinMode)
	if cfg.GinMode == "" {
		cfg.GinMode = "release"
	}

	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "backoffice-dev-secret"
	}

	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 30
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 24
	}

	cfg.MailFrom = strings.TrimSpace(cfg.MailFrom)
	if cfg.MailFrom == "" {
		cfg.MailFrom = "noreply@backoffice.local"
	}

	cfg.RootEmail = strings.TrimSpace(cfg.RootEmail)
	cfg.RootUsername = strings.TrimSpace(cfg.RootUsername)
	cfg.RootPassword = strings.TrimSpace(cfg.RootPassword)

	return cfg, nil
}
