package models

import (
	"time"
)

type CurrentConditions struct {
	City         string  `json:"city"`
	Country      string  `json:"country"`
	Temperature  int     `json:"temperature"`
	FeelsLike    int     `json:"feels_like"`
	Condition    string  `json:"condition"`
	Humidity     int     `json:"humidity"`
	WindSpeed    float64 `json:"wind_speed"`
	Pressure     int     `json:"pressure"`
	VisibilityKm float64 `json:"visibility_km"`
	Icon         string  `json:"icon"`
	Sunrise      string  `json:"sunrise"`
	Sunset       string  `json:"sunset"`
}

type DailyForecast struct {
	Date      string  `json:"date"`
	DayName   string  `json:"day_name"`
	MaxTemp   int     `json:"max_temp"`
	MinTemp   int     `json:"min_temp"`
	Condition string  `json:"condition"`
	Icon      string  `json:"icon"`
	Humidity  int     `json:"humidity"`
	WindSpeed float64 `json:"wind_speed"`
}

// CacheEntry is the unit stored by the two-tier cache. Current conditions and
// forecast share one FetchedAt and expire together.
type CacheEntry struct {
	CityKey   string            `json:"city_key"`
	Current   CurrentConditions `json:"current"`
	Forecast  []DailyForecast   `json:"forecast"`
	FetchedAt time.Time         `json:"fetched_at"`
}

type SearchResult struct {
	Query     string            `json:"query"`
	CityKey   string            `json:"city_key"`
	Current   CurrentConditions `json:"current"`
	Forecast  []DailyForecast   `json:"forecast"`
	FetchedAt time.Time         `json:"fetched_at"`
	Cached    bool              `json:"cached"`
}

type Coordinates struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}
