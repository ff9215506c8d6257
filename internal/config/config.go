package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const defaultConfigFile = "weather.yaml"

type Config struct {
	Server struct {
		Port         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		LogLevel     string
	}

	WeatherAPI struct {
		BaseURL          string
		GeoURL           string
		APIKey           string
		RequestTimeoutMs int
		Locale           string
		Timezone         string
	}

	Cache struct {
		ExpiryMinutes   int
		MaxSize         int
		CleanupInterval time.Duration
		StorePath       string
	}

	CircuitBreaker struct {
		Threshold int
		Timeout   time.Duration
	}

	Scheduler struct {
		WarmSchedule string
		WarmCities   []string
	}

	// CityAliases extend the built-in localized name table.
	CityAliases map[string]string
}

// fileConfig is the YAML layout. Pointers distinguish "unset" from zero.
type fileConfig struct {
	Server struct {
		Port         *string `yaml:"port"`
		ReadTimeout  *string `yaml:"readTimeout"`
		WriteTimeout *string `yaml:"writeTimeout"`
		LogLevel     *string `yaml:"logLevel"`
	} `yaml:"server"`
	WeatherAPI struct {
		BaseURL          *string `yaml:"baseUrl"`
		GeoURL           *string `yaml:"geoUrl"`
		APIKey           *string `yaml:"apiKey"`
		RequestTimeoutMs *int    `yaml:"requestTimeoutMs"`
		Locale           *string `yaml:"locale"`
		Timezone         *string `yaml:"timezone"`
	} `yaml:"weatherApi"`
	Cache struct {
		ExpiryMinutes   *int    `yaml:"expiryMinutes"`
		MaxSize         *int    `yaml:"maxSize"`
		CleanupInterval *string `yaml:"cleanupInterval"`
		StorePath       *string `yaml:"storePath"`
	} `yaml:"cache"`
	CircuitBreaker struct {
		Threshold *int    `yaml:"threshold"`
		Timeout   *string `yaml:"timeout"`
	} `yaml:"circuitBreaker"`
	Scheduler struct {
		WarmSchedule *string  `yaml:"warmSchedule"`
		WarmCities   []string `yaml:"warmCities"`
	} `yaml:"scheduler"`
	CityAliases map[string]string `yaml:"cityAliases"`
}

// Default returns a configuration that runs without any external setup. The
// placeholder API key is rejected by the provider and surfaces as an
// authentication error.
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Port = "8080"
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Server.LogLevel = "info"

	cfg.WeatherAPI.BaseURL = "https://api.openweathermap.org/data/2.5"
	cfg.WeatherAPI.GeoURL = "https://api.openweathermap.org/geo/1.0"
	cfg.WeatherAPI.APIKey = "demo-key"
	cfg.WeatherAPI.RequestTimeoutMs = 10000
	cfg.WeatherAPI.Locale = "zh_cn"

	cfg.Cache.ExpiryMinutes = 10
	cfg.Cache.MaxSize = 1000
	cfg.Cache.CleanupInterval = time.Minute
	cfg.Cache.StorePath = "weather-cache.db"

	cfg.CircuitBreaker.Threshold = 5
	cfg.CircuitBreaker.Timeout = 30 * time.Second

	cfg.Scheduler.WarmSchedule = "@every 15m"

	cfg.CityAliases = map[string]string{}
	return cfg
}

// LoadConfig layers defaults, an optional YAML file and the environment
// (including a .env file), in that order.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := Default()

	path, explicit := os.LookupEnv("CONFIG_FILE")
	if !explicit {
		path = defaultConfigFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(buf, &fc); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}

	setString(&c.Server.Port, fc.Server.Port)
	setDuration(&c.Server.ReadTimeout, fc.Server.ReadTimeout)
	setDuration(&c.Server.WriteTimeout, fc.Server.WriteTimeout)
	setString(&c.Server.LogLevel, fc.Server.LogLevel)

	setString(&c.WeatherAPI.BaseURL, fc.WeatherAPI.BaseURL)
	setString(&c.WeatherAPI.GeoURL, fc.WeatherAPI.GeoURL)
	setString(&c.WeatherAPI.APIKey, fc.WeatherAPI.APIKey)
	setInt(&c.WeatherAPI.RequestTimeoutMs, fc.WeatherAPI.RequestTimeoutMs)
	setString(&c.WeatherAPI.Locale, fc.WeatherAPI.Locale)
	setString(&c.WeatherAPI.Timezone, fc.WeatherAPI.Timezone)

	setInt(&c.Cache.ExpiryMinutes, fc.Cache.ExpiryMinutes)
	setInt(&c.Cache.MaxSize, fc.Cache.MaxSize)
	setDuration(&c.Cache.CleanupInterval, fc.Cache.CleanupInterval)
	setString(&c.Cache.StorePath, fc.Cache.StorePath)

	setInt(&c.CircuitBreaker.Threshold, fc.CircuitBreaker.Threshold)
	setDuration(&c.CircuitBreaker.Timeout, fc.CircuitBreaker.Timeout)

	setString(&c.Scheduler.WarmSchedule, fc.Scheduler.WarmSchedule)
	if fc.Scheduler.WarmCities != nil {
		c.Scheduler.WarmCities = fc.Scheduler.WarmCities
	}

	for k, v := range fc.CityAliases {
		c.CityAliases[k] = v
	}
	return nil
}

func (c *Config) applyEnv() {
	// Server configuration
	c.Server.Port = getEnv("FIBER_PORT", c.Server.Port)
	c.Server.ReadTimeout = envDuration("FIBER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = envDuration("FIBER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)

	// Weather API configuration
	c.WeatherAPI.BaseURL = getEnv("WEATHER_API_BASE_URL", c.WeatherAPI.BaseURL)
	c.WeatherAPI.GeoURL = getEnv("WEATHER_GEO_URL", c.WeatherAPI.GeoURL)
	c.WeatherAPI.APIKey = getEnv("WEATHER_API_KEY", c.WeatherAPI.APIKey)
	c.WeatherAPI.RequestTimeoutMs = envInt("REQUEST_TIMEOUT_MS", c.WeatherAPI.RequestTimeoutMs)
	c.WeatherAPI.Locale = getEnv("WEATHER_LOCALE", c.WeatherAPI.Locale)
	c.WeatherAPI.Timezone = getEnv("WEATHER_TIMEZONE", c.WeatherAPI.Timezone)

	// Cache configuration
	c.Cache.ExpiryMinutes = envInt("CACHE_EXPIRY_MINUTES", c.Cache.ExpiryMinutes)
	c.Cache.MaxSize = envInt("MAX_CACHE_SIZE", c.Cache.MaxSize)
	c.Cache.CleanupInterval = envDuration("CACHE_CLEANUP_INTERVAL", c.Cache.CleanupInterval)
	c.Cache.StorePath = getEnv("CACHE_STORE_PATH", c.Cache.StorePath)

	// Circuit breaker configuration
	c.CircuitBreaker.Threshold = envInt("CIRCUIT_BREAKER_THRESHOLD", c.CircuitBreaker.Threshold)
	c.CircuitBreaker.Timeout = envDuration("CIRCUIT_BREAKER_TIMEOUT", c.CircuitBreaker.Timeout)

	// Scheduler configuration
	c.Scheduler.WarmSchedule = getEnv("WARM_SCHEDULE", c.Scheduler.WarmSchedule)
	if cities := os.Getenv("WARM_CITIES"); cities != "" {
		c.Scheduler.WarmCities = splitList(cities)
	}
}

func (c *Config) Validate() error {
	if c.WeatherAPI.BaseURL == "" {
		return errors.New("weather API base URL is required")
	}
	if c.Cache.ExpiryMinutes <= 0 {
		return fmt.Errorf("cache expiry must be positive, got %d minutes", c.Cache.ExpiryMinutes)
	}
	if c.WeatherAPI.RequestTimeoutMs <= 0 {
		return fmt.Errorf("request timeout must be positive, got %dms", c.WeatherAPI.RequestTimeoutMs)
	}
	if c.Cache.StorePath == "" {
		return errors.New("cache store path is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) CacheExpiry() time.Duration {
	return time.Duration(c.Cache.ExpiryMinutes) * time.Minute
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.WeatherAPI.RequestTimeoutMs) * time.Millisecond
}

// Location is the viewer's calendar used for day grouping and display times.
func (c *Config) Location() (*time.Location, error) {
	if c.WeatherAPI.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.WeatherAPI.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.WeatherAPI.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		return parseDuration(value)
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		return parseInt(value)
	}
	return defaultValue
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string) {
	if v != nil {
		*dst = parseDuration(*v)
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(value string) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		zap.L().Warn("Failed to parse duration", zap.String("value", value), zap.Error(err))
		return 0
	}
	return duration
}

func parseInt(value string) int {
	intValue, err := strconv.Atoi(value)
	if err != nil {
		zap.L().Warn("Failed to parse int", zap.String("value", value), zap.Error(err))
		return 0
	}
	return intValue
}
