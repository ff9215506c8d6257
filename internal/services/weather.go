package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/apperror"
	"github.com/bobby-s-dev/weather-lookup/internal/cache"
	"github.com/bobby-s-dev/weather-lookup/internal/city"
	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"go.uber.org/zap"
)

// WeatherClient is the remote provider as seen by the service.
type WeatherClient interface {
	FetchCurrent(ctx context.Context, city string) (*models.CurrentConditions, error)
	FetchForecast(ctx context.Context, city string) ([]models.DailyForecast, error)
	FetchCoordinates(ctx context.Context, city string) (*models.Coordinates, error)
}

// Cache is the subset of the two-tier cache the service drives.
type Cache interface {
	Get(key string) (*models.CacheEntry, bool)
	Put(key string, current models.CurrentConditions, forecast []models.DailyForecast) (*models.CacheEntry, error)
	Clear() error
	Stats() cache.Stats
}

type Stats struct {
	Searches      int         `json:"searches"`
	CacheHits     int         `json:"cache_hits"`
	Fetches       int         `json:"fetches"`
	Failures      int         `json:"failures"`
	LastFetchTime *time.Time  `json:"last_fetch_time,omitempty"`
	Cache         cache.Stats `json:"cache"`
}

type WeatherService struct {
	resolver *city.Resolver
	client   WeatherClient
	cache    Cache
	logger   *zap.Logger

	mu            sync.RWMutex
	searches      int
	cacheHits     int
	fetches       int
	failures      int
	lastFetchTime time.Time
}

func NewWeatherService(resolver *city.Resolver, client WeatherClient, cache Cache, logger *zap.Logger) *WeatherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherService{
		resolver: resolver,
		client:   client,
		cache:    cache,
		logger:   logger,
	}
}

// Search validates name, resolves it and answers from the cache when fresh,
// otherwise fetches current conditions and forecast together. Every error
// returned is an *apperror.AppError.
func (s *WeatherService) Search(ctx context.Context, name string) (*models.SearchResult, error) {
	query, err := city.ParseQuery(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.searches++
	s.mu.Unlock()

	key := s.resolver.Resolve(query)

	if entry, ok := s.cache.Get(key); ok {
		s.mu.Lock()
		s.cacheHits++
		s.mu.Unlock()

		s.logger.Debug("Serving weather from cache",
			zap.String("query", string(query)),
			zap.String("city", key))
		return newResult(query, entry, true), nil
	}

	entry, err := s.fetch(ctx, key)
	if err != nil {
		return nil, s.fail(err, query, key)
	}
	return newResult(query, entry, false), nil
}

// Refresh fetches and caches name regardless of what the cache holds.
func (s *WeatherService) Refresh(ctx context.Context, name string) (*models.SearchResult, error) {
	query, err := city.ParseQuery(name)
	if err != nil {
		return nil, err
	}

	key := s.resolver.Resolve(query)
	entry, err := s.fetch(ctx, key)
	if err != nil {
		return nil, s.fail(err, query, key)
	}
	return newResult(query, entry, false), nil
}

// Warm refreshes every city concurrently and reports how many failed.
func (s *WeatherService) Warm(ctx context.Context, cities []string) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(cities))

	startTime := time.Now()

	for _, name := range cities {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, err := s.Refresh(ctx, name); err != nil {
				errs <- err
			}
		}(name)
	}

	wg.Wait()
	close(errs)

	failed := len(errs)
	s.logger.Info("Cache warm-up completed",
		zap.Int("cities", len(cities)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(startTime)))

	if failed > 0 {
		return fmt.Errorf("%d of %d cities failed to refresh", failed, len(cities))
	}
	return nil
}

// ClearCache drops both cache tiers.
func (s *WeatherService) ClearCache() error {
	if err := s.cache.Clear(); err != nil {
		s.logger.Error("Failed to clear weather cache", zap.Error(err))
		return apperror.New(apperror.KindUnknown, "", err)
	}
	return nil
}

// Locate returns the provider's coordinates for name. Results are not cached.
func (s *WeatherService) Locate(ctx context.Context, name string) (*models.Coordinates, error) {
	query, err := city.ParseQuery(name)
	if err != nil {
		return nil, err
	}

	key := s.resolver.Resolve(query)
	coords, err := s.client.FetchCoordinates(ctx, key)
	if err != nil {
		return nil, s.fail(err, query, key)
	}
	return coords, nil
}

func (s *WeatherService) Aliases() []city.Alias {
	return s.resolver.Aliases()
}

func (s *WeatherService) Stats() Stats {
	s.mu.RLock()
	stats := Stats{
		Searches:  s.searches,
		CacheHits: s.cacheHits,
		Fetches:   s.fetches,
		Failures:  s.failures,
	}
	if !s.lastFetchTime.IsZero() {
		last := s.lastFetchTime
		stats.LastFetchTime = &last
	}
	s.mu.RUnlock()

	stats.Cache = s.cache.Stats()
	return stats
}

// fetch issues both provider calls in parallel. Each call carries its own
// timeout; a failure in one does not cancel the other, and any failure
// discards both results.
func (s *WeatherService) fetch(ctx context.Context, key string) (*models.CacheEntry, error) {
	var (
		wg          sync.WaitGroup
		current     *models.CurrentConditions
		forecast    []models.DailyForecast
		currentErr  error
		forecastErr error
	)

	startTime := time.Now()

	wg.Add(2)
	go func() {
		defer wg.Done()
		current, currentErr = s.client.FetchCurrent(ctx, key)
	}()
	go func() {
		defer wg.Done()
		forecast, forecastErr = s.client.FetchForecast(ctx, key)
	}()
	wg.Wait()

	fetchedAt := time.Now()
	s.mu.Lock()
	s.fetches++
	s.lastFetchTime = fetchedAt
	s.mu.Unlock()

	if currentErr != nil {
		return nil, currentErr
	}
	if forecastErr != nil {
		return nil, forecastErr
	}

	entry, err := s.cache.Put(key, *current, forecast)
	if err != nil {
		s.logger.Warn("Failed to persist weather",
			zap.String("city", key),
			zap.Error(err))
	}

	s.logger.Info("Weather fetched",
		zap.String("city", key),
		zap.Int("forecast_days", len(forecast)),
		zap.Duration("duration", time.Since(startTime)))

	// the stored entry carries the cache's timestamp, so a later hit reports
	// the same FetchedAt as this live result
	if entry == nil {
		entry = &models.CacheEntry{
			CityKey:   key,
			Current:   *current,
			Forecast:  forecast,
			FetchedAt: fetchedAt,
		}
	}
	return entry, nil
}

func (s *WeatherService) fail(err error, query city.Query, key string) *apperror.AppError {
	appErr := apperror.Classify(err, string(query))

	s.mu.Lock()
	s.failures++
	s.mu.Unlock()

	s.logger.Warn("Weather lookup failed",
		zap.String("query", string(query)),
		zap.String("city", key),
		zap.String("kind", string(appErr.Kind)),
		zap.Error(err))
	return appErr
}

func newResult(query city.Query, entry *models.CacheEntry, cached bool) *models.SearchResult {
	forecast := entry.Forecast
	if forecast == nil {
		forecast = []models.DailyForecast{}
	}
	return &models.SearchResult{
		Query:     string(query),
		CityKey:   entry.CityKey,
		Current:   entry.Current,
		Forecast:  forecast,
		FetchedAt: entry.FetchedAt,
		Cached:    cached,
	}
}
