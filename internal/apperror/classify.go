package apperror

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/bobby-s-dev/weather-lookup/pkg/client"
)

type rule struct {
	name  string
	kind  Kind
	match func(err error, msg string) bool
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{name: "transport", kind: KindNetwork, match: isTransport},
	{name: "not-found", kind: KindCityNotFound, match: func(err error, msg string) bool {
		return hasStatus(err, http.StatusNotFound) || hasAny(msg, "not found", "未找到")
	}},
	{name: "auth", kind: KindAuthInvalid, match: func(err error, msg string) bool {
		return hasStatus(err, http.StatusUnauthorized) || hasAny(msg, "invalid api key", "401")
	}},
	{name: "quota", kind: KindQuotaExceeded, match: func(err error, msg string) bool {
		return hasStatus(err, http.StatusTooManyRequests) || hasAny(msg, "limit", "429")
	}},
}

// Classify maps a raw failure onto an AppError. An error that already is an
// AppError is returned unchanged.
func Classify(err error, query string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		if r.match(err, msg) {
			return New(r.kind, query, err)
		}
	}
	return New(KindUnknown, query, err)
}

func isTransport(err error, msg string) bool {
	var transportErr *client.TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// the client prefixes every failure with "failed to fetch"; a provider
	// status reply is never a transport failure
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return false
	}
	return hasAny(msg, "failed to fetch", "timed out", "timeout", "connection refused", "no such host")
}

func hasStatus(err error, code int) bool {
	var statusErr *client.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
