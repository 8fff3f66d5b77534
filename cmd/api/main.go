package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dokuai.org/internal/auth"
	"dokuai.org/internal/config"
	"dokuai.org/internal/httpapi"
	"dokuai.org/internal/mail"
	"dokuai.org/internal/obs"
)

var version = "1.2.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := auth.NewPGStore(db)
	mailer, err := mail.NewSMTPMailer(mail.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPass,
		From:        cfg.MailFrom,
		FrontendURL: cfg.FrontendURL,
	})
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	svc := auth.NewService(store, issuer, mailer,
		auth.WithFrontendURL(cfg.FrontendURL),
	)

	api := httpapi.New(svc, store, db, cfg.FrontendURL,
		httpapi.WithRateLimit(cfg.RateLimitMax, cfg.RateLimitWindow),
		httpapi.WithProduction(cfg.Production()),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting dokuai-auth %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
