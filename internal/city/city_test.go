package city

import (
	"errors"
	"strings"
	"testing"

	"github.com/bobby-s-dev/weather-lookup/internal/apperror"
)

func TestResolve(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		in   Query
		want string
	}{
		{"北京", "Beijing"},
		{"Beijing", "Beijing"},
		{"西安", "Xi'an"},
		{"香港", "Hong Kong"},
		{"beijing", "beijing"},
		{"Paris", "Paris"},
		{"北京市", "北京市"},
	}

	for _, tt := range tests {
		for i := 0; i < 3; i++ {
			if got := r.Resolve(tt.in); got != tt.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
			}
		}
	}
}

func TestResolverExtraAliases(t *testing.T) {
	r := NewResolver(map[string]string{"罗马": "Rome", "北京": "Peking", "": "ignored"})

	if got := r.Resolve("罗马"); got != "Rome" {
		t.Fatalf("expected extra alias, got %q", got)
	}
	if got := r.Resolve("北京"); got != "Peking" {
		t.Fatalf("expected override, got %q", got)
	}

	// the built-in table must not be mutated by overrides
	if got := NewResolver(nil).Resolve("北京"); got != "Beijing" {
		t.Fatalf("built-in table mutated: %q", got)
	}

	aliases := r.Aliases()
	if len(aliases) != len(builtinAliases)+1 {
		t.Fatalf("unexpected alias count %d", len(aliases))
	}
	for i := 1; i < len(aliases); i++ {
		if aliases[i-1].Canonical > aliases[i].Canonical {
			t.Fatalf("aliases not sorted at %d", i)
		}
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Query
		detail string
	}{
		{"english", "  Beijing ", "Beijing", ""},
		{"chinese", "北京", "北京", ""},
		{"two characters", "Xi", "Xi", ""},
		{"apostrophe and space", "Xi'an Shi", "Xi'an Shi", ""},
		{"hyphen", "Saint-Denis", "Saint-Denis", ""},
		{"fifty characters", strings.Repeat("a", 50), Query(strings.Repeat("a", 50)), ""},
		{"empty", "", "", "city name cannot be empty"},
		{"whitespace", "   ", "", "city name cannot be empty"},
		{"one character", "a", "", "city name must be at least 2 characters"},
		{"one chinese character", "京", "", "city name must be at least 2 characters"},
		{"fifty one characters", strings.Repeat("a", 51), "", "city name is too long, please enter a valid city name"},
		{"digits", "Beijing1", "", details["cityname"]},
		{"punctuation", "Rome!", "", details["cityname"]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuery(tt.raw)
			if tt.detail == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Fatalf("got %q, want %q", got, tt.want)
				}
				return
			}

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *AppError, got %T: %v", err, err)
			}
			if appErr.Kind != apperror.KindInvalidInput {
				t.Fatalf("expected InvalidInput, got %s", appErr.Kind)
			}
			if appErr.Detail != tt.detail {
				t.Fatalf("detail = %q, want %q", appErr.Detail, tt.detail)
			}
		})
	}
}
