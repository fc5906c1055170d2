// Package conf provides configuration management for wildlife-go.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/wildlife-go/internal/errors"
	"github.com/tphakala/wildlife-go/internal/logger"
)

const appName = "wildlife-go"

// Settings contains all configuration options for the service.
type Settings struct {
	Debug bool `yaml:"debug"` // true to enable debug mode

	Logging logger.LoggingConfig `yaml:"logging"`

	WebServer   WebServerSettings   `yaml:"webserver"`
	INaturalist INaturalistSettings `yaml:"inaturalist"`
	Database    DatabaseSettings    `yaml:"database"`
	Species     SpeciesSettings     `yaml:"species"`
	Sentry      SentrySettings      `yaml:"sentry"`
	Metrics     MetricsSettings     `yaml:"metrics"`
}

// WebServerSettings contains HTTP listener options.
type WebServerSettings struct {
	Enabled   bool          `yaml:"enabled"`
	Listen    string        `yaml:"listen"`    // host:port to bind, e.g. ":8080"
	BodyLimit string        `yaml:"bodylimit"` // maximum request body, e.g. "12M"
	Timeout   time.Duration `yaml:"timeout"`   // read and write timeout
	Debug     bool          `yaml:"debug"`
}

// INaturalistSettings configures the taxonomy and computer-vision providers.
type INaturalistSettings struct {
	APIToken  string        `yaml:"apitoken"`  // bearer token for computer-vision scoring
	UserAgent string        `yaml:"useragent"` // sent with every outbound request
	VisionURL string        `yaml:"visionurl"` // score_image endpoint
	TaxaURL   string        `yaml:"taxaurl"`   // API base, taxa endpoints are appended
	Timeout   time.Duration `yaml:"timeout"`   // per-request timeout
	CacheTTL  time.Duration `yaml:"cachettl"`  // taxa response cache lifetime
	RateLimit float64       `yaml:"ratelimit"` // requests per second, 0 disables limiting
	Burst     int           `yaml:"burst"`
}

// DatabaseSettings selects and configures the catalog store.
type DatabaseSettings struct {
	Type      string         `yaml:"type"` // sqlite or mysql
	SQLite    SQLiteSettings `yaml:"sqlite"`
	MySQL     MySQLSettings  `yaml:"mysql"`
	SlowQuery time.Duration  `yaml:"slowquery"` // log queries slower than this at WARN
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Path string `yaml:"path"` // path to sqlite database, ":memory:" for ephemeral
}

// MySQLSettings contains settings for the MySQL database.
type MySQLSettings struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
}

// LimitSettings is a default and an upper bound for a listing's page size.
type LimitSettings struct {
	Default int `yaml:"default"`
	Max     int `yaml:"max"`
}

// Clamp returns the default for non-positive requests and caps the rest at Max.
func (l LimitSettings) Clamp(requested int) int {
	if requested <= 0 {
		return l.Default
	}
	if l.Max > 0 && requested > l.Max {
		return l.Max
	}
	return requested
}

// SpeciesSettings tunes species resolution.
type SpeciesSettings struct {
	FindMinQueryLength int           `yaml:"findminquerylength"` // shorter queries never reach the provider
	Search             LimitSettings `yaml:"search"`
	Find               LimitSettings `yaml:"find"`
	Popular            LimitSettings `yaml:"popular"`
	Classification     LimitSettings `yaml:"classification"`
}

// SentrySettings controls opt-in error reporting.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	Debug   bool   `yaml:"debug"`
}

// MetricsSettings controls the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads the configuration file and environment variables.
func Load() (*Settings, error) {
	paths, err := defaultConfigPaths()
	if err != nil {
		return nil, err
	}
	return loadWith(viper.GetViper(), paths)
}

// loadWith reads config from the first of paths holding config.yaml, writing
// a default file into paths[0] when none exists.
func loadWith(v *viper.Viper, paths []string) (*Settings, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		GetLogger().Warn("environment configuration problems", logger.Error(err))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.New(fmt.Errorf("error reading config file: %w", err)).
				Category(errors.CategoryConfiguration).
				Context("operation", "read_config").
				Build()
		}
		if len(paths) > 0 {
			if err := createDefaultConfig(v, filepath.Join(paths[0], "config.yaml")); err != nil {
				return nil, err
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// createDefaultConfig writes the default settings to configPath.
func createDefaultConfig(v *viper.Viper, configPath string) error {
	defaults := &Settings{}
	if err := v.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error building default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := SaveYAMLConfig(configPath, defaults); err != nil {
		return err
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	v.SetConfigFile(configPath)
	return v.ReadInConfig()
}

// SaveYAMLConfig writes settings to configPath atomically through a temp file.
// Comments and ordering of an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer func() { _ = os.Remove(tempFileName) }()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}

// defaultConfigPaths returns the directories searched for config.yaml, in order.
func defaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get_home_directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		return []string{
			".",
			filepath.Join(homeDir, "AppData", "Roaming", appName),
		}, nil
	}

	return []string{
		filepath.Join(homeDir, ".config", appName),
		".",
		filepath.Join("/etc", appName),
	}, nil
}
