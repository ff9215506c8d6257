package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"go.uber.org/zap"
)

// DefaultNamespace prefixes every persisted key owned by the cache.
const DefaultNamespace = "weather_"

// Store is the durable tier. Keys outside the cache namespace may live in the
// same store and must survive Clear.
type Store interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, value []byte) error
	DeletePrefix(prefix string) (int64, error)
	CountPrefix(prefix string) (int64, error)
	Close() error
}

type Options struct {
	Expiry          time.Duration
	MaxSize         int
	CleanupInterval time.Duration
	Namespace       string
	Now             func() time.Time
}

type Stats struct {
	MemoryEntries    int    `json:"memory_entries"`
	PersistedEntries int64  `json:"persisted_entries"`
	MemoryHits       int64  `json:"memory_hits"`
	PersistentHits   int64  `json:"persistent_hits"`
	Misses           int64  `json:"misses"`
	CorruptRecords   int64  `json:"corrupt_records"`
	MaxSize          int    `json:"max_size"`
	Expiry           string `json:"expiry"`
}

// Cache is the two-tier weather cache: a bounded in-process map in front of a
// durable Store. An entry is fresh while now - FetchedAt <= Expiry.
type Cache struct {
	memory    *memoryTier
	store     Store
	expiry    time.Duration
	maxSize   int
	namespace string
	now       func() time.Time
	logger    *zap.Logger

	memoryHits     atomic.Int64
	persistentHits atomic.Int64
	misses         atomic.Int64
	corrupt        atomic.Int64

	closeOnce sync.Once
}

func New(opts Options, store Store, logger *zap.Logger) (*Cache, error) {
	if opts.Expiry <= 0 {
		return nil, fmt.Errorf("cache expiry must be positive, got %s", opts.Expiry)
	}
	if store == nil {
		return nil, errors.New("cache requires a persistent store")
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Cache{
		memory:    newMemoryTier(opts.MaxSize, opts.CleanupInterval, logger),
		store:     store,
		expiry:    opts.Expiry,
		maxSize:   opts.MaxSize,
		namespace: opts.Namespace,
		now:       opts.Now,
		logger:    logger,
	}
	c.memory.startCleanup(c.expired)

	return c, nil
}

func (c *Cache) expired(fetchedAt time.Time) bool {
	return c.now().Sub(fetchedAt) > c.expiry
}

// Get returns a fresh entry for key, consulting memory first and then the
// persistent tier. A persistent hit is copied into memory with its original
// FetchedAt, so it still expires on schedule.
func (c *Cache) Get(key string) (*models.CacheEntry, bool) {
	if entry, ok := c.memory.get(key); ok {
		if !c.expired(entry.FetchedAt) {
			c.memoryHits.Add(1)
			return cloneEntry(entry), true
		}
		c.memory.delete(key)
	}

	raw, ok, err := c.store.Load(c.namespace + key)
	if err != nil {
		c.logger.Warn("Failed to read persistent cache",
			zap.String("city", key),
			zap.Error(err))
		c.misses.Add(1)
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	entry, err := decodeRecord(raw)
	if err != nil {
		c.logger.Warn("Ignoring unreadable cache record",
			zap.String("city", key),
			zap.Error(err))
		c.corrupt.Add(1)
		c.misses.Add(1)
		return nil, false
	}
	if c.expired(entry.FetchedAt) {
		c.misses.Add(1)
		return nil, false
	}

	c.memory.set(key, entry)
	c.persistentHits.Add(1)
	return cloneEntry(entry), true
}

// Put stores a new entry in both tiers, overwriting any previous one, and
// returns a copy of what was stored. The memory tier is updated even when
// persisting fails; the entry is still returned alongside the error.
func (c *Cache) Put(key string, current models.CurrentConditions, forecast []models.DailyForecast) (*models.CacheEntry, error) {
	if forecast == nil {
		forecast = []models.DailyForecast{}
	}

	entry := models.CacheEntry{
		CityKey:   key,
		Current:   current,
		Forecast:  append([]models.DailyForecast(nil), forecast...),
		FetchedAt: time.UnixMilli(c.now().UnixMilli()),
	}
	c.memory.set(key, entry)

	raw, err := encodeRecord(entry)
	if err != nil {
		return cloneEntry(entry), fmt.Errorf("encoding cache record: %w", err)
	}
	if err := c.store.Save(c.namespace+key, raw); err != nil {
		return cloneEntry(entry), fmt.Errorf("persisting cache record: %w", err)
	}

	c.logger.Debug("Weather cached",
		zap.String("city", key),
		zap.Time("fetched_at", entry.FetchedAt))
	return cloneEntry(entry), nil
}

// Clear empties the memory tier and removes every namespaced persistent
// record. Other keys in the store are left alone.
func (c *Cache) Clear() error {
	c.memory.reset()

	removed, err := c.store.DeletePrefix(c.namespace)
	if err != nil {
		return fmt.Errorf("clearing persistent cache: %w", err)
	}

	c.logger.Info("Weather cache cleared", zap.Int64("persisted_removed", removed))
	return nil
}

func (c *Cache) Stats() Stats {
	persisted, err := c.store.CountPrefix(c.namespace)
	if err != nil {
		c.logger.Warn("Failed to count persistent cache entries", zap.Error(err))
		persisted = -1
	}

	return Stats{
		MemoryEntries:    c.memory.len(),
		PersistedEntries: persisted,
		MemoryHits:       c.memoryHits.Load(),
		PersistentHits:   c.persistentHits.Load(),
		Misses:           c.misses.Load(),
		CorruptRecords:   c.corrupt.Load(),
		MaxSize:          c.maxSize,
		Expiry:           c.expiry.String(),
	}
}

// Close stops the cleanup sweep and closes the store. Safe to call twice.
func (c *Cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.memory.stop()
		err = c.store.Close()
	})
	return err
}

func cloneEntry(entry models.CacheEntry) *models.CacheEntry {
	entry.Forecast = append([]models.DailyForecast{}, entry.Forecast...)
	return &entry
}
