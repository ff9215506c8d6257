package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// BaseClient issues single, time-bounded GET requests behind a circuit
// breaker. It never retries; a failed request is reported to the caller.
type BaseClient struct {
	client         HTTPClient
	logger         *zap.Logger
	circuitBreaker *gobreaker.CircuitBreaker
	timeout        time.Duration
}

type ClientConfig struct {
	Timeout        time.Duration
	Threshold      int
	BreakerTimeout time.Duration
}

type response struct {
	status int
	body   []byte
}

func NewBaseClient(name string, config ClientConfig, logger *zap.Logger) *BaseClient {
	return newBaseClient(name, &http.Client{Timeout: config.Timeout}, config, logger)
}

func newBaseClient(name string, httpClient HTTPClient, config ClientConfig, logger *zap.Logger) *BaseClient {
	threshold := uint32(5)
	if config.Threshold > 0 {
		threshold = uint32(config.Threshold)
	}

	breakerSettings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("client", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BaseClient{
		client:         httpClient,
		logger:         logger,
		circuitBreaker: gobreaker.NewCircuitBreaker(breakerSettings),
		timeout:        config.Timeout,
	}
}

// Get performs one GET bounded by the client timeout and returns the body of
// a 2xx response. Failures are *TransportError or *StatusError.
func (c *BaseClient) Get(ctx context.Context, url string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.do(ctx, url)
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			c.logger.Warn("Provider returned server error",
				zap.String("url", redactURL(url)),
				zap.Int("status", statusErr.StatusCode))
			return nil, statusErr
		}

		transportErr := &TransportError{
			URL:     redactURL(url),
			Timeout: isTimeout(ctx, err),
			Err:     err,
		}
		c.logger.Warn("HTTP request failed",
			zap.String("url", transportErr.URL),
			zap.Bool("timeout", transportErr.Timeout),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, transportErr
	}

	resp, ok := result.(*response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}

	if resp.status < 200 || resp.status >= 300 {
		statusErr := newStatusError(resp.status, resp.body, url)
		c.logger.Debug("Provider rejected request",
			zap.String("url", statusErr.URL),
			zap.Int("status", resp.status),
			zap.String("message", statusErr.Message))
		return nil, statusErr
	}

	c.logger.Debug("Request successful",
		zap.String("url", redactURL(url)),
		zap.Int("status", resp.status),
		zap.Int("body_size", len(resp.body)),
		zap.Duration("elapsed", time.Since(start)))

	return resp.body, nil
}

// do only reports transport failures and 5xx answers as errors, so client
// errors such as an unknown city do not count against the breaker.
func (c *BaseClient) do(ctx context.Context, url string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 500 {
		return nil, newStatusError(resp.StatusCode, body, url)
	}

	return &response{status: resp.StatusCode, body: body}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
