// Package apperror defines the closed set of failures a weather search can
// end with and how raw failures are mapped onto them.
package apperror

import "fmt"

type Kind string

const (
	KindNetwork       Kind = "NETWORK_ERROR"
	KindCityNotFound  Kind = "CITY_NOT_FOUND"
	KindAuthInvalid   Kind = "API_KEY_INVALID"
	KindQuotaExceeded Kind = "API_LIMIT_EXCEEDED"
	KindInvalidInput  Kind = "INVALID_INPUT"
	KindUnknown       Kind = "UNKNOWN_ERROR"
)

type descriptor struct {
	message   string
	retryHint string
}

var descriptors = map[Kind]descriptor{
	KindNetwork: {
		message:   "Network connection failed, please check your connection and try again",
		retryHint: "Check your network connection and retry",
	},
	KindCityNotFound: {
		message:   "City not found, please check the spelling or try another name",
		retryHint: "Try the English name or check the spelling",
	},
	KindAuthInvalid: {
		message:   "The weather service API key is invalid",
		retryHint: "Contact the maintainer to update the API key",
	},
	KindQuotaExceeded: {
		message:   "The weather service request limit has been reached",
		retryHint: "Wait a while and try again",
	},
	KindInvalidInput: {
		message:   "Invalid input, please enter a valid city name",
		retryHint: "Enter a valid city name",
	},
	KindUnknown: {
		message:   "An unknown error occurred, please try again later",
		retryHint: "Try again later or contact support",
	},
}

// Kinds lists every kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindNetwork, KindCityNotFound, KindAuthInvalid, KindQuotaExceeded, KindInvalidInput, KindUnknown}
}

// Message returns the fixed user-facing message for k.
func (k Kind) Message() string {
	if d, ok := descriptors[k]; ok {
		return d.message
	}
	return descriptors[KindUnknown].message
}

// RetryHint returns the fixed retry suggestion for k.
func (k Kind) RetryHint() string {
	if d, ok := descriptors[k]; ok {
		return d.retryHint
	}
	return descriptors[KindUnknown].retryHint
}

// AppError is the only error type a search surfaces. Detail optionally
// narrows the message (validation failures); Cause keeps the raw failure.
type AppError struct {
	Kind      Kind
	Message   string
	RetryHint string
	Detail    string
	Query     string
	Cause     error
}

func New(kind Kind, query string, cause error) *AppError {
	return &AppError{
		Kind:      kind,
		Message:   kind.Message(),
		RetryHint: kind.RetryHint(),
		Query:     query,
		Cause:     cause,
	}
}

// InvalidInput builds a validation failure with a specific detail.
func InvalidInput(query, detail string) *AppError {
	e := New(KindInvalidInput, query, nil)
	e.Detail = detail
	return e
}

func (e *AppError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any *AppError of the same kind, so callers can write
// errors.Is(err, &AppError{Kind: KindNetwork}).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Kind == e.Kind
}
