package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

const currentBody = `{
	"weather": [{"id": 800, "main": "Clear", "description": "晴", "icon": "01d"}],
	"main": {"temp": 21.6, "feels_like": 20.4, "pressure": 1013, "humidity": 45},
	"visibility": 10000,
	"wind": {"speed": 3.6, "deg": 180},
	"dt": 1700000000,
	"sys": {"country": "CN", "sunrise": 1700000000, "sunset": 1700036000},
	"name": "Beijing"
}`

func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) *OpenWeatherClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOpenWeatherClient(OpenWeatherSettings{
		BaseURL:  server.URL + "/data/2.5",
		GeoURL:   server.URL + "/geo/1.0",
		APIKey:   "test-key",
		Locale:   "zh_cn",
		Location: time.UTC,
	}, ClientConfig{Timeout: timeout, BreakerTimeout: time.Second}, zap.NewNop())
}

func TestFetchCurrentNormalizes(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/data/2.5/weather", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, currentBody)
	})

	c := newTestClient(t, mux, time.Second)
	current, err := c.FetchCurrent(context.Background(), "Xi'an")
	if err != nil {
		t.Fatalf("FetchCurrent failed: %v", err)
	}

	for _, want := range []string{"q=Xi%27an", "appid=test-key", "units=metric", "lang=zh_cn"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}

	if current.City != "Beijing" || current.Country != "CN" {
		t.Errorf("unexpected city %q/%q", current.City, current.Country)
	}
	if current.Temperature != 22 || current.FeelsLike != 20 {
		t.Errorf("unexpected temperatures %d/%d", current.Temperature, current.FeelsLike)
	}
	if current.VisibilityKm != 10 {
		t.Errorf("expected 10km visibility, got %v", current.VisibilityKm)
	}
	if current.Condition != "晴" || current.Icon != "01d" {
		t.Errorf("unexpected condition %q/%q", current.Condition, current.Icon)
	}
	if current.Sunrise != "22:13:20" || current.Sunset != "08:13:20" {
		t.Errorf("unexpected sun times %q/%q", current.Sunrise, current.Sunset)
	}
}

func TestFetchForecastAggregates(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/data/2.5/forecast", func(w http.ResponseWriter, r *http.Request) {
		var items []string
		for i := 0; i < 6*8; i++ {
			ts := start.Add(time.Duration(i) * 3 * time.Hour).Unix()
			items = append(items, fmt.Sprintf(
				`{"dt": %d, "main": {"temp": %d, "humidity": 60}, "weather": [{"description": "多云", "icon": "03d"}], "wind": {"speed": 2}}`,
				ts, i%8))
		}
		fmt.Fprintf(w, `{"cnt": %d, "list": [%s], "city": {"name": "Beijing"}}`, len(items), strings.Join(items, ","))
	})

	c := newTestClient(t, mux, time.Second)
	days, err := c.FetchForecast(context.Background(), "Beijing")
	if err != nil {
		t.Fatalf("FetchForecast failed: %v", err)
	}
	if len(days) != 5 {
		t.Fatalf("expected 5 days, got %d", len(days))
	}
	if days[0].Date != "2024-03-02" || days[0].DayName != "星期六" {
		t.Errorf("unexpected first day %+v", days[0])
	}
	if days[0].MaxTemp != 7 || days[0].MinTemp != 0 || days[0].Condition != "多云" {
		t.Errorf("unexpected summary %+v", days[0])
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"provider message", http.StatusNotFound, `{"cod":"404","message":"city not found"}`, "city not found"},
		{"invalid key", http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key. Please see https://openweathermap.org/faq#error401 for more info."}`, "Invalid API key. Please see https://openweathermap.org/faq#error401 for more info."},
		{"unparseable body", http.StatusTooManyRequests, `<html>slow down</html>`, "request failed with status code 429"},
		{"server error", http.StatusBadGateway, ``, "request failed with status code 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			c := newTestClient(t, handler, time.Second)
			_, err := c.FetchCurrent(context.Background(), "Nowhere")

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected *StatusError, got %T: %v", err, err)
			}
			if statusErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, statusErr.StatusCode)
			}
			if statusErr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, statusErr.Message)
			}
			if strings.Contains(statusErr.URL, "test-key") {
				t.Errorf("api key leaked into error url %q", statusErr.URL)
			}
		})
	}
}

func TestTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	c := newTestClient(t, handler, 50*time.Millisecond)
	_, err := c.FetchForecast(context.Background(), "Beijing")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
	if !transportErr.Timeout {
		t.Fatalf("expected timeout flag, got %v", transportErr)
	}
}

func TestFetchCoordinates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/geo/1.0/direct", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Atlantis" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"name": "Shanghai", "lat": 31.23, "lon": 121.47, "country": "CN"}]`)
	})

	c := newTestClient(t, mux, time.Second)

	coords, err := c.FetchCoordinates(context.Background(), "Shanghai")
	if err != nil {
		t.Fatalf("FetchCoordinates failed: %v", err)
	}
	if coords.Name != "Shanghai" || coords.Lat != 31.23 || coords.Lon != 121.47 {
		t.Errorf("unexpected coordinates %+v", coords)
	}

	_, err = c.FetchCoordinates(context.Background(), "Atlantis")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://api.example.com/weather?q=Rome&appid=secret")
	if strings.Contains(got, "secret") {
		t.Fatalf("secret not redacted: %s", got)
	}
	if !strings.Contains(got, "q=Rome") {
		t.Fatalf("query lost: %s", got)
	}
}
