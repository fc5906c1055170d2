// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "WILDLIFE_DEBUG", validateEnvBool},

		// Providers
		{"inaturalist.apitoken", "WILDLIFE_INATURALIST_APITOKEN", nil},
		{"inaturalist.useragent", "WILDLIFE_INATURALIST_USERAGENT", nil},
		{"inaturalist.visionurl", "WILDLIFE_INATURALIST_VISIONURL", validateEnvURL},
		{"inaturalist.taxaurl", "WILDLIFE_INATURALIST_TAXAURL", validateEnvURL},
		{"inaturalist.timeout", "WILDLIFE_INATURALIST_TIMEOUT", validateEnvDuration},
		{"inaturalist.ratelimit", "WILDLIFE_INATURALIST_RATELIMIT", validateEnvNonNegativeFloat},

		// Web server
		{"webserver.listen", "WILDLIFE_WEBSERVER_LISTEN", nil},
		{"webserver.bodylimit", "WILDLIFE_WEBSERVER_BODYLIMIT", nil},

		// Database
		{"database.type", "WILDLIFE_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "WILDLIFE_DATABASE_SQLITE_PATH", nil},
		{"database.mysql.host", "WILDLIFE_DATABASE_MYSQL_HOST", nil},
		{"database.mysql.port", "WILDLIFE_DATABASE_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "WILDLIFE_DATABASE_MYSQL_USERNAME", nil},
		{"database.mysql.password", "WILDLIFE_DATABASE_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "WILDLIFE_DATABASE_MYSQL_DATABASE", nil},

		// Telemetry
		{"sentry.enabled", "WILDLIFE_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "WILDLIFE_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds environment variables and reports invalid values.
// Invalid values are still bound; ValidateSettings rejects them later.
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value: %v", binding.EnvVar, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 {
		return fmt.Errorf("must not be negative, got %g", f)
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch strings.ToLower(value) {
	case DatabaseSQLite, DatabaseMySQL:
		return nil
	default:
		return fmt.Errorf("database type must be %q or %q, got %q", DatabaseSQLite, DatabaseMySQL, value)
	}
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}
