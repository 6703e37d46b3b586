package main

import (
	"log"
	"time"

	"github.com/backoffice/internal/config"
	"github.com/backoffice/internal/db"
	"github.com/backoffice/internal/handler"
	"github.com/backoffice/internal/router"
	"github.com/backoffice/internal/service"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	gin.SetMode(cfg.GinMode)

	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Bootstrap the root account when credentials are provided.
	if err := db.EnsureSuperadmin(cfg.RootEmail, cfg.RootUsername, cfg.RootPassword); err != nil {
		log.Fatalf("failed to ensure superadmin: %v", err)
	}

	var mailer service.Mailer = service.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = &service.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}
	}

	api := handler.NewAPI(
		db.DB,
		mailer,
		cfg.JWTSecret,
		time.Duration(cfg.AccessTokenTTL)*time.Minute,
		time.Duration(cfg.RefreshTokenTTL)*time.Hour,
	)

	r := router.SetupRouter(api)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
