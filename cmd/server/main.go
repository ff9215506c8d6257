package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/api"
	"github.com/bobby-s-dev/weather-lookup/internal/cache"
	"github.com/bobby-s-dev/weather-lookup/internal/city"
	"github.com/bobby-s-dev/weather-lookup/internal/config"
	"github.com/bobby-s-dev/weather-lookup/internal/scheduler"
	"github.com/bobby-s-dev/weather-lookup/internal/services"
	"github.com/bobby-s-dev/weather-lookup/internal/storage"
	"github.com/bobby-s-dev/weather-lookup/pkg/client"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Initialize logger; the level is adjusted once configuration is loaded
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	logCfg := zap.NewProductionConfig()
	logCfg.Level = level
	logger, _ := logCfg.Build()
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Starting Weather Lookup Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if lvl, err := zapcore.ParseLevel(cfg.Server.LogLevel); err == nil {
		level.SetLevel(lvl)
	} else {
		logger.Warn("Unknown log level, keeping info", zap.String("level", cfg.Server.LogLevel))
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Invalid timezone", zap.Error(err))
	}

	// Persistent tier and cache
	store, err := storage.NewSQLite(cfg.Cache.StorePath)
	if err != nil {
		logger.Fatal("Failed to open cache store", zap.String("path", cfg.Cache.StorePath), zap.Error(err))
	}

	weatherCache, err := cache.New(cache.Options{
		Expiry:          cfg.CacheExpiry(),
		MaxSize:         cfg.Cache.MaxSize,
		CleanupInterval: cfg.Cache.CleanupInterval,
	}, store, logger)
	if err != nil {
		logger.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer weatherCache.Close()

	// Remote client
	weatherClient := client.NewOpenWeatherClient(client.OpenWeatherSettings{
		BaseURL:  cfg.WeatherAPI.BaseURL,
		GeoURL:   cfg.WeatherAPI.GeoURL,
		APIKey:   cfg.WeatherAPI.APIKey,
		Locale:   cfg.WeatherAPI.Locale,
		Location: loc,
	}, client.ClientConfig{
		Timeout:        cfg.RequestTimeout(),
		Threshold:      cfg.CircuitBreaker.Threshold,
		BreakerTimeout: cfg.CircuitBreaker.Timeout,
	}, logger)

	service := services.NewWeatherService(city.NewResolver(cfg.CityAliases), weatherClient, weatherCache, logger)

	// Initialize scheduler
	warmScheduler, err := scheduler.NewScheduler(
		service,
		cfg.Scheduler.WarmSchedule,
		cfg.Scheduler.WarmCities,
		60*time.Second,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize scheduler", zap.Error(err))
	}

	app := newApp(cfg, api.NewHandler(service, warmScheduler, logger))

	// Start scheduler
	warmScheduler.Start()

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("Starting server", zap.String("address", addr))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	warmScheduler.Stop()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// newApp builds the fiber app with the configured timeouts and routes.
func newApp(cfg *config.Config, handler *api.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: api.ErrorHandler,
	})
	api.SetupRoutes(app, handler)
	return app
}
