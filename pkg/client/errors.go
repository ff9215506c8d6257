package client

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// StatusError is returned when the provider answers with a non-2xx status.
// Message carries the provider's own error text when the body could be parsed.
type StatusError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *StatusError) Error() string {
	return e.Message
}

// TransportError is returned when no HTTP response was obtained: dial or read
// failures, timeouts, or an open circuit breaker.
type TransportError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return "request timed out, check network connection"
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newStatusError(status int, body []byte, rawURL string) *StatusError {
	var payload struct {
		Message string `json:"message"`
	}

	message := fmt.Sprintf("request failed with status code %d", status)
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		message = payload.Message
	}

	return &StatusError{
		StatusCode: status,
		Message:    message,
		URL:        redactURL(rawURL),
	}
}

// redactURL hides the API key before a URL is logged or attached to an error.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("appid") {
		q.Set("appid", "***")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
