// Package inaturalist provides a client for the iNaturalist taxa API.
package inaturalist

import (
	"net/http"
	"time"

	"github.com/tphakala/wildlife-go/internal/taxonomy"
)

// Config holds configuration for the taxa client
type Config struct {
	BaseURL   string        `json:"base_url"`
	UserAgent string        `json:"user_agent"`
	Timeout   time.Duration `json:"timeout"`
	CacheTTL  time.Duration `json:"cache_ttl"`
	RateLimit float64       `json:"rate_limit"` // Requests per second, 0 disables limiting
	Burst     int           `json:"burst"`

	// Transport overrides the HTTP transport, used by tests
	Transport http.RoundTripper `json:"-"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://api.inaturalist.org/v1",
		UserAgent: "WildlifeApp/1.0",
		Timeout:   30 * time.Second,
		CacheTTL:  24 * time.Hour, // Taxa change rarely
		RateLimit: 1.0,
		Burst:     5,
	}
}

// Status tags the result of a taxa lookup.
type Status int

const (
	// Found means the provider returned a usable taxon.
	Found Status = iota + 1
	// NotFound means the provider answered but has no matching taxon.
	NotFound
	// ProviderError means the provider could not be asked or its answer was unusable.
	ProviderError
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case ProviderError:
		return "provider_error"
	default:
		return "unknown"
	}
}

// Outcome is a tagged taxa lookup result. Record is set only for Found and
// Err only for ProviderError.
type Outcome struct {
	Status Status
	Record taxonomy.Record
	Err    error
}

// IsFound reports whether the lookup produced a record.
func (o Outcome) IsFound() bool { return o.Status == Found }

func found(rec taxonomy.Record) Outcome {
	return Outcome{Status: Found, Record: rec}
}

func notFound() Outcome {
	return Outcome{Status: NotFound}
}

func providerError(err error) Outcome {
	return Outcome{Status: ProviderError, Err: err}
}
