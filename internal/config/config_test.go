package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weather.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfig(t, ""))

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.CacheExpiry() != 10*time.Minute {
		t.Errorf("expiry = %s", cfg.CacheExpiry())
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Errorf("timeout = %s", cfg.RequestTimeout())
	}
	if cfg.WeatherAPI.APIKey != "demo-key" {
		t.Errorf("expected placeholder key, got %q", cfg.WeatherAPI.APIKey)
	}
	if cfg.WeatherAPI.Locale != "zh_cn" {
		t.Errorf("locale = %q", cfg.WeatherAPI.Locale)
	}
}

func TestFileThenEnvironment(t *testing.T) {
	path := writeConfig(t, `
weatherApi:
  baseUrl: http://file.example/data
  apiKey: file-key
  requestTimeoutMs: 2500
  timezone: Asia/Shanghai
cache:
  expiryMinutes: 30
  cleanupInterval: 5m
scheduler:
  warmSchedule: "0 */30 * * * *"
  warmCities: [北京, Rome]
cityAliases:
  罗马: Rome
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("WEATHER_API_KEY", "env-key")
	t.Setenv("WARM_CITIES", "Oslo, Paris ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.WeatherAPI.BaseURL != "http://file.example/data" {
		t.Errorf("base url = %q", cfg.WeatherAPI.BaseURL)
	}
	if cfg.WeatherAPI.APIKey != "env-key" {
		t.Errorf("environment should override the file, got %q", cfg.WeatherAPI.APIKey)
	}
	if cfg.RequestTimeout() != 2500*time.Millisecond {
		t.Errorf("timeout = %s", cfg.RequestTimeout())
	}
	if cfg.CacheExpiry() != 30*time.Minute || cfg.Cache.CleanupInterval != 5*time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.MaxSize != 1000 {
		t.Errorf("unset fields keep defaults, got max size %d", cfg.Cache.MaxSize)
	}
	if cfg.Scheduler.WarmSchedule != "0 */30 * * * *" {
		t.Errorf("schedule = %q", cfg.Scheduler.WarmSchedule)
	}
	if len(cfg.Scheduler.WarmCities) != 2 || cfg.Scheduler.WarmCities[0] != "Oslo" || cfg.Scheduler.WarmCities[1] != "Paris" {
		t.Errorf("warm cities = %q", cfg.Scheduler.WarmCities)
	}
	if cfg.CityAliases["罗马"] != "Rome" {
		t.Errorf("aliases = %v", cfg.CityAliases)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Asia/Shanghai" {
		t.Errorf("location = %v (%v)", loc, err)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero expiry", map[string]string{"CACHE_EXPIRY_MINUTES": "0"}},
		{"unparsable expiry", map[string]string{"CACHE_EXPIRY_MINUTES": "ten"}},
		{"negative timeout", map[string]string{"REQUEST_TIMEOUT_MS": "-1"}},
		{"bad timezone", map[string]string{"WEATHER_TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", writeConfig(t, ""))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestMissingExplicitFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestMalformedFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeConfig(t, "cache: [unclosed"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected yaml error")
	}
}
