package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/blueberryplanner/blueberry/internal/auth"
	"github.com/blueberryplanner/blueberry/internal/database"
	"github.com/blueberryplanner/blueberry/internal/email"
	"github.com/blueberryplanner/blueberry/internal/logging"
	"github.com/blueberryplanner/blueberry/internal/push"
	"github.com/blueberryplanner/blueberry/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	logger := logging.Setup(os.Getenv("BLUEBERRY_LOG_LEVEL"), os.Getenv("BLUEBERRY_LOG_FORMAT"))

	port := envOr("BLUEBERRY_PORT", "8080")
	dbPath := envOr("BLUEBERRY_DB_PATH", "blueberry.db")
	baseURL := envOr("BLUEBERRY_BASE_URL", "http://localhost:"+port)

	jwtSecret := os.Getenv("BLUEBERRY_JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("BLUEBERRY_JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	mailer := email.NewClient(
		os.Getenv("BLUEBERRY_POSTMARK_TOKEN"),
		envOr("BLUEBERRY_FROM_EMAIL", "noreply@blueberryplanner.app"),
		baseURL,
	)
	if !mailer.Configured() {
		logger.Warn("postmark token not set, email disabled")
	}

	tokens := auth.NewTokenIssuer(jwtSecret)

	var pushSvc *push.Service
	vapidPublic := os.Getenv("BLUEBERRY_VAPID_PUBLIC_KEY")
	vapidPrivate := os.Getenv("BLUEBERRY_VAPID_PRIVATE_KEY")
	if vapidPublic != "" && vapidPrivate != "" {
		pushSvc = push.NewService(vapidPublic, vapidPrivate, envOr("BLUEBERRY_VAPID_SUBJECT", "mailto:admin@blueberryplanner.app"))
	} else {
		logger.Warn("VAPID keys not set, push notifications disabled")
	}

	srv := server.New(db, mailer, tokens, pushSvc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.Refresher().Start(ctx)
	defer srv.Refresher().Stop()
	if d := srv.Dispatcher(); d != nil {
		d.Start(ctx)
		defer d.Stop()
	}

	jobs := cron.New()
	jobs.AddFunc("@hourly", func() {
		if n, err := srv.SessionStore().DeleteExpired(); err != nil {
			logger.Error("purge sessions", "error", err)
		} else if n > 0 {
			logger.Info("purged expired sessions", "count", n)
		}
	})
	jobs.AddFunc("@every 10m", srv.RateLimiter().Cleanup)
	// Full reschedule shortly after midnight rolls every family's two-day
	// medication window forward.
	jobs.AddFunc("5 0 * * *", func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		srv.Refresher().RefreshAll(refreshCtx)
	})
	jobs.Start()
	defer jobs.Stop()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
