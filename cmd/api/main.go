package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/appointment-agent/cmd/mainconfig"
	"github.com/wolfman30/appointment-agent/internal/api/router"
	appconfig "github.com/wolfman30/appointment-agent/internal/config"
	"github.com/wolfman30/appointment-agent/internal/conversation"
	httpmiddleware "github.com/wolfman30/appointment-agent/internal/http/middleware"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting appointment scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"calendar_backend", cfg.CalendarBackend,
		"timezone", cfg.BusinessTimezone,
	)

	scheduler, err := mainconfig.BuildScheduler(context.Background(), cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		logger.Error("failed to wire scheduler", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := scheduler.Close(); err != nil {
			logger.Error("failed to release resources", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, scheduler, promhttp.Handler(), logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func newRouter(cfg *appconfig.Config, scheduler *mainconfig.Scheduler, metricsHandler http.Handler, logger *logging.Logger) http.Handler {
	checks := make(map[string]router.Pinger, len(scheduler.HealthChecks))
	for name, p := range scheduler.HealthChecks {
		checks[name] = p
	}
	return router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        conversation.NewHandler(scheduler.Agent, logger),
		MetricsHandler:     metricsHandler,
		RateLimiter:        httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       checks,
	})
}
