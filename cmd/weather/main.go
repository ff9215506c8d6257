package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bobby-s-dev/weather-lookup/internal/apperror"
	"github.com/bobby-s-dev/weather-lookup/internal/cache"
	"github.com/bobby-s-dev/weather-lookup/internal/city"
	"github.com/bobby-s-dev/weather-lookup/internal/config"
	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"github.com/bobby-s-dev/weather-lookup/internal/services"
	"github.com/bobby-s-dev/weather-lookup/internal/storage"
	"github.com/bobby-s-dev/weather-lookup/pkg/client"
	"go.uber.org/zap"
)

func main() {
	clearCache := flag.Bool("clear", false, "clear the weather cache before (or instead of) searching")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	verbose := flag.Bool("v", false, "log at debug level to stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: weather [-clear] [-json] [-v] <city>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	service, closeFn, err := newService(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup error: %v\n", err)
		os.Exit(2)
	}
	defer closeFn()

	if *clearCache {
		if err := service.ClearCache(); err != nil {
			fmt.Fprintf(os.Stderr, "clearing cache: %v\n", err)
			os.Exit(1)
		}
		if flag.NArg() == 0 {
			fmt.Println("cache cleared")
			return
		}
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	result, err := service.Search(context.Background(), strings.Join(flag.Args(), " "))
	if err != nil {
		printError(os.Stderr, err)
		closeFn()
		os.Exit(1)
	}

	if *asJSON {
		if err := writeJSON(os.Stdout, result); err != nil {
			fmt.Fprintf(os.Stderr, "writing output: %v\n", err)
			closeFn()
			os.Exit(1)
		}
		return
	}
	printResult(os.Stdout, result)
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newService(cfg *config.Config, logger *zap.Logger) (*services.WeatherService, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewSQLite(cfg.Cache.StorePath)
	if err != nil {
		return nil, nil, err
	}

	weatherCache, err := cache.New(cache.Options{
		Expiry:  cfg.CacheExpiry(),
		MaxSize: cfg.Cache.MaxSize,
	}, store, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

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
	return service, func() { _ = weatherCache.Close() }, nil
}

func writeJSON(w io.Writer, r *models.SearchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func printResult(w io.Writer, r *models.SearchResult) {
	cur := r.Current
	source := "live"
	if r.Cached {
		source = "cached"
	}

	fmt.Fprintf(w, "%s, %s (%s, fetched %s)\n", cur.City, cur.Country, source, r.FetchedAt.Local().Format("15:04:05"))
	fmt.Fprintf(w, "  %d°C (feels like %d°C), %s\n", cur.Temperature, cur.FeelsLike, cur.Condition)
	fmt.Fprintf(w, "  humidity %d%%  wind %.1f m/s  pressure %d hPa  visibility %.1f km\n",
		cur.Humidity, cur.WindSpeed, cur.Pressure, cur.VisibilityKm)
	fmt.Fprintf(w, "  sunrise %s  sunset %s\n", cur.Sunrise, cur.Sunset)

	if len(r.Forecast) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, d := range r.Forecast {
		fmt.Fprintf(w, "  %s %-9s %3d / %3d°C  %s\n", d.Date, d.DayName, d.MinTemp, d.MaxTemp, d.Condition)
	}
}

func printError(w io.Writer, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}

	fmt.Fprintf(w, "%s\n", appErr.Message)
	if appErr.Detail != "" {
		fmt.Fprintf(w, "  %s\n", appErr.Detail)
	}
	fmt.Fprintf(w, "  hint: %s\n", appErr.RetryHint)
}
