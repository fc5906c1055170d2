package conf

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/labstack/gommon/bytes"
)

// Database types
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateINaturalistSettings(&settings.INaturalist); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateSpeciesSettings(&settings.Species); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry is enabled but no DSN is configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(s *WebServerSettings) error {
	if !s.Enabled {
		return nil
	}
	if s.Listen == "" {
		return fmt.Errorf("webserver listen address is required")
	}
	if _, err := bytes.Parse(s.BodyLimit); err != nil {
		return fmt.Errorf("invalid webserver body limit %q: %w", s.BodyLimit, err)
	}
	return nil
}

func validateINaturalistSettings(s *INaturalistSettings) error {
	for name, raw := range map[string]string{"visionurl": s.VisionURL, "taxaurl": s.TaxaURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("inaturalist %s must be an absolute http(s) URL, got %q", name, raw)
		}
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("inaturalist timeout must be positive")
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("inaturalist rate limit must not be negative")
	}
	if s.RateLimit > 0 && s.Burst < 1 {
		return fmt.Errorf("inaturalist burst must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func validateDatabaseSettings(s *DatabaseSettings) error {
	s.Type = strings.ToLower(s.Type)
	switch s.Type {
	case DatabaseSQLite:
		if s.SQLite.Path == "" {
			return fmt.Errorf("sqlite database path is required")
		}
	case DatabaseMySQL:
		if s.MySQL.Host == "" || s.MySQL.Database == "" {
			return fmt.Errorf("mysql host and database are required")
		}
	default:
		return fmt.Errorf("unsupported database type %q", s.Type)
	}
	return nil
}

func validateSpeciesSettings(s *SpeciesSettings) error {
	if s.FindMinQueryLength < 1 {
		return fmt.Errorf("species find minimum query length must be at least 1")
	}
	limits := map[string]LimitSettings{
		"search":         s.Search,
		"find":           s.Find,
		"popular":        s.Popular,
		"classification": s.Classification,
	}
	for name, l := range limits {
		if l.Default < 1 || l.Max < l.Default {
			return fmt.Errorf("species %s limits invalid: default %d, max %d", name, l.Default, l.Max)
		}
	}
	return nil
}

// BodyLimitBytes returns the parsed request body limit.
func (s *WebServerSettings) BodyLimitBytes() int64 {
	n, err := bytes.Parse(s.BodyLimit)
	if err != nil {
		return 0
	}
	return n
}
