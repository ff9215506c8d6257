package cache

import (
	"sync"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"go.uber.org/zap"
)

// memoryTier is the in-process tier. It is bounded by maxSize and swept
// periodically; both only ever drop entries, the persistent tier keeps them.
type memoryTier struct {
	mu              sync.RWMutex
	entries         map[string]models.CacheEntry
	logger          *zap.Logger
	maxSize         int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

func newMemoryTier(maxSize int, cleanupInterval time.Duration, logger *zap.Logger) *memoryTier {
	return &memoryTier{
		entries:         make(map[string]models.CacheEntry),
		logger:          logger,
		maxSize:         maxSize,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
}

func (m *memoryTier) get(key string) (models.CacheEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[key]
	return entry, ok
}

func (m *memoryTier) set(key string, entry models.CacheEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && m.maxSize > 0 && len(m.entries) >= m.maxSize {
		m.evictOldest()
	}
	m.entries[key] = entry
}

func (m *memoryTier) delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *memoryTier) reset() {
	m.mu.Lock()
	m.entries = make(map[string]models.CacheEntry)
	m.mu.Unlock()
}

func (m *memoryTier) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// evictOldest must be called with mu held.
func (m *memoryTier) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range m.entries {
		if oldestKey == "" || entry.FetchedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.FetchedAt
		}
	}

	if oldestKey != "" {
		delete(m.entries, oldestKey)
		m.logger.Debug("Evicted oldest entry from memory tier",
			zap.String("city", oldestKey))
	}
}

func (m *memoryTier) startCleanup(expired func(time.Time) bool) {
	if m.cleanupInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(m.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.cleanup(expired)
			case <-m.stopCleanup:
				return
			}
		}
	}()
}

func (m *memoryTier) cleanup(expired func(time.Time) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key, entry := range m.entries {
		if expired(entry.FetchedAt) {
			delete(m.entries, key)
			count++
		}
	}

	if count > 0 {
		m.logger.Debug("Cleaned expired memory tier entries",
			zap.Int("count", count))
	}
	return count
}

func (m *memoryTier) stop() {
	close(m.stopCleanup)
}
