package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/models"
)

var errIncompleteRecord = errors.New("incomplete cache record")

// record is the persisted layout: {data: CacheEntry, timestamp: epoch-millis}.
type record struct {
	Data      models.CacheEntry `json:"data"`
	Timestamp int64             `json:"timestamp"`
}

func encodeRecord(entry models.CacheEntry) ([]byte, error) {
	return json.Marshal(record{
		Data:      entry,
		Timestamp: entry.FetchedAt.UnixMilli(),
	})
}

// decodeRecord treats the timestamp as authoritative for FetchedAt.
func decodeRecord(raw []byte) (models.CacheEntry, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.CacheEntry{}, fmt.Errorf("decoding cache record: %w", err)
	}
	if rec.Timestamp <= 0 || rec.Data.CityKey == "" {
		return models.CacheEntry{}, errIncompleteRecord
	}

	entry := rec.Data
	entry.FetchedAt = time.UnixMilli(rec.Timestamp)
	if entry.Forecast == nil {
		entry.Forecast = []models.DailyForecast{}
	}
	return entry, nil
}
