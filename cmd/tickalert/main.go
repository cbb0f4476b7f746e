// cmd/tickalert is the application entry point.
// It wires together all layers, runs the startup event sync, and starts the
// webhook/dashboard HTTP server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tickalert/tickalert/internal/bot"
	"github.com/tickalert/tickalert/internal/config"
	"github.com/tickalert/tickalert/internal/dashboard"
	"github.com/tickalert/tickalert/internal/database"
	"github.com/tickalert/tickalert/internal/eventsync"
	"github.com/tickalert/tickalert/internal/gateway"
	"github.com/tickalert/tickalert/internal/guard"
	"github.com/tickalert/tickalert/internal/lib/logger/sl"
	"github.com/tickalert/tickalert/internal/notify"
	"github.com/tickalert/tickalert/internal/repository"
	"github.com/tickalert/tickalert/internal/scraper"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", sl.Err(err))
		os.Exit(1)
	}
	defer pool.Close()
	log.Info("connected to postgres")

	// Wire up layers.
	userRepo := repository.NewUserRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)

	g := guard.New(cfg.AdminIDs, userRepo)
	sender := gateway.New(cfg.GatewayURL, cfg.GatewayToken)
	notifier := notify.New(log, sender, userRepo)
	tickbot := bot.New(log, userRepo, eventRepo, regRepo, ticketRepo, g, notifier, sender)

	// Event sync: once at startup, then every SyncInterval.
	games := scraper.New(log, cfg.ScoresAPIURL, cfg.FetchTimeout)
	syncer := eventsync.New(log, games, eventRepo, cfg.SyncInterval)
	syncer.RunOnce(ctx)
	syncer.Start(ctx)
	defer syncer.Stop()

	// Build the router.
	h := dashboard.New(log, tickbot, statsRepo, eventRepo, cfg.WebhookSecret)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Get("/health", dashboard.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhook", h.Webhook)
	r.Route("/api", func(r chi.Router) {
		r.Get("/events", h.ListEvents)
		r.Get("/stats/overview", h.Overview)
		r.Get("/stats/top-events", h.TopEvents)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", sl.Err(err))
			os.Exit(1)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", sl.Err(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
