package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/forecast"
	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"go.uber.org/zap"
)

const clockLayout = "15:04:05"

type OpenWeatherClient struct {
	*BaseClient
	apiKey   string
	baseURL  string
	geoURL   string
	locale   string
	location *time.Location
}

// OpenWeatherSettings carries the provider endpoints and presentation
// settings. A nil Location means time.Local.
type OpenWeatherSettings struct {
	BaseURL  string
	GeoURL   string
	APIKey   string
	Locale   string
	Location *time.Location
}

type weatherEntry struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type OpenWeatherCurrentResponse struct {
	Weather []weatherEntry `json:"weather"`
	Main    struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Visibility float64 `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Dt  int64 `json:"dt"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int    `json:"timezone"`
	Name     string `json:"name"`
}

type OpenWeatherForecastResponse struct {
	Cnt  int `json:"cnt"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []weatherEntry `json:"weather"`
		Wind    struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		DtTxt string `json:"dt_txt"`
	} `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}

type geoResponse []struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
}

func NewOpenWeatherClient(settings OpenWeatherSettings, config ClientConfig, logger *zap.Logger) *OpenWeatherClient {
	return newOpenWeatherClient(settings, NewBaseClient("openweather", config, logger))
}

func newOpenWeatherClient(settings OpenWeatherSettings, base *BaseClient) *OpenWeatherClient {
	location := settings.Location
	if location == nil {
		location = time.Local
	}
	return &OpenWeatherClient{
		BaseClient: base,
		apiKey:     settings.APIKey,
		baseURL:    settings.BaseURL,
		geoURL:     settings.GeoURL,
		locale:     settings.Locale,
		location:   location,
	}
}

// FetchCurrent returns normalized current conditions for a canonical city id.
func (c *OpenWeatherClient) FetchCurrent(ctx context.Context, city string) (*models.CurrentConditions, error) {
	data, err := c.Get(ctx, c.endpoint(c.baseURL+"/weather", city))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current weather: %w", err)
	}

	var response OpenWeatherCurrentResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	current := &models.CurrentConditions{
		City:         response.Name,
		Country:      response.Sys.Country,
		Temperature:  int(math.Round(response.Main.Temp)),
		FeelsLike:    int(math.Round(response.Main.FeelsLike)),
		Humidity:     int(math.Round(response.Main.Humidity)),
		WindSpeed:    response.Wind.Speed,
		Pressure:     int(math.Round(response.Main.Pressure)),
		VisibilityKm: response.Visibility / 1000,
		Sunrise:      c.clock(response.Sys.Sunrise),
		Sunset:       c.clock(response.Sys.Sunset),
	}
	if len(response.Weather) > 0 {
		current.Condition = response.Weather[0].Description
		current.Icon = response.Weather[0].Icon
	}

	return current, nil
}

// FetchForecast returns the daily summaries built from the provider's
// 3-hour samples.
func (c *OpenWeatherClient) FetchForecast(ctx context.Context, city string) ([]models.DailyForecast, error) {
	data, err := c.Get(ctx, c.endpoint(c.baseURL+"/forecast", city))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}

	var response OpenWeatherForecastResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse forecast response: %w", err)
	}

	samples := make([]forecast.Sample, 0, len(response.List))
	for _, item := range response.List {
		sample := forecast.Sample{
			Time:      time.Unix(item.Dt, 0),
			Temp:      item.Main.Temp,
			Humidity:  item.Main.Humidity,
			WindSpeed: item.Wind.Speed,
		}
		if len(item.Weather) > 0 {
			sample.Condition = item.Weather[0].Description
			sample.Icon = item.Weather[0].Icon
		}
		samples = append(samples, sample)
	}

	return forecast.Aggregate(samples, c.location, c.locale), nil
}

// FetchCoordinates resolves a city id through the provider's geocoding API.
func (c *OpenWeatherClient) FetchCoordinates(ctx context.Context, city string) (*models.Coordinates, error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("limit", "1")
	values.Set("appid", c.apiKey)

	data, err := c.Get(ctx, fmt.Sprintf("%s/direct?%s", c.geoURL, values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch coordinates: %w", err)
	}

	var response geoResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse geocoding response: %w", err)
	}
	if len(response) == 0 {
		return nil, fmt.Errorf("coordinates for city %q not found", city)
	}

	return &models.Coordinates{
		Name:    response[0].Name,
		Country: response[0].Country,
		Lat:     response[0].Lat,
		Lon:     response[0].Lon,
	}, nil
}

func (c *OpenWeatherClient) endpoint(base, city string) string {
	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")
	if c.locale != "" {
		values.Set("lang", c.locale)
	}
	return fmt.Sprintf("%s?%s", base, values.Encode())
}

func (c *OpenWeatherClient) clock(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).In(c.location).Format(clockLayout)
}
