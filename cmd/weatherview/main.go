package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weatherview/internal/client"
	"github.com/kjstillabower/weatherview/internal/config"
	httphandler "github.com/kjstillabower/weatherview/internal/http"
	"github.com/kjstillabower/weatherview/internal/lifecycle"
	"github.com/kjstillabower/weatherview/internal/location"
	"github.com/kjstillabower/weatherview/internal/models"
	"github.com/kjstillabower/weatherview/internal/observability"
	"github.com/kjstillabower/weatherview/internal/screen"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient, err := client.NewOpenWeatherClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}
	if cfg.ValidateAPIKey {
		if err := weatherClient.ValidateAPIKey(context.Background()); err != nil {
			logger.Warn("weather API key validation failed", zap.Error(err))
		}
	}

	var locator location.Locator
	switch cfg.LocationProvider {
	case "ip":
		locator = location.NewIPLocator(cfg.LocationLookupURL, cfg.LocationTimeout)
		logger.Info("location provider: ip", zap.String("lookup_url", cfg.LocationLookupURL))
	default:
		static, err := location.NewStaticLocator(models.Position{Latitude: cfg.StaticLatitude, Longitude: cfg.StaticLongitude})
		if err != nil {
			logger.Fatal("static locator", zap.Error(err))
		}
		locator = static
		logger.Info("location provider: static", zap.Float64("latitude", cfg.StaticLatitude), zap.Float64("longitude", cfg.StaticLongitude))
	}

	alerts := screen.NewAlertQueue(logger, cfg.MaxAlerts)
	view := screen.NewWeatherView(locator, weatherClient, alerts, screen.Options{
		AlertDelay:               cfg.AlertDelay,
		IgnoreOverlappingRefresh: cfg.IgnoreOverlappingRefresh,
		Logger:                   logger,
	})

	var limiter *rate.Limiter
	if cfg.RefreshRateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RefreshRateLimitRPS), cfg.RefreshRateLimitBurst)
	}
	handler := httphandler.NewHandler(view, alerts, logger)
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		RefreshLimiter: limiter,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	view.Mount(context.Background())
	lifecycle.SetPhase(lifecycle.PhaseServing)

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetPhase(lifecycle.PhaseShuttingDown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	view.Unmount()
	logger.Info("waiting for in-flight fetches", zap.Int64("count", view.InFlight()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownFetchTimeout)
	defer waitCancel()
	if err := view.WaitIdle(waitCtx, cfg.ShutdownFetchCheckInterval); err != nil {
		logger.Warn("in-flight fetches not completed", zap.Error(err), zap.Int64("remaining", view.InFlight()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}
