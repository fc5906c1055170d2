package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/wildlife-go/internal/logger"
)

// Provider defaults
const (
	DefaultUserAgent = "WildlifeApp/1.0"
	DefaultVisionURL = "https://api.inaturalist.org/v1/computervision/score_image"
	DefaultTaxaURL   = "https://api.inaturalist.org/v1"
	DefaultTimeout   = 30 * time.Second
)

// setDefaultConfig sets the default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	// Logging
	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.max_size", logger.DefaultMaxSize)
	v.SetDefault("logging.file_output.max_age", logger.DefaultMaxAge)
	v.SetDefault("logging.file_output.max_rotated_files", logger.DefaultMaxRotatedFiles)
	v.SetDefault("logging.file_output.compress", logger.DefaultCompressLogs)

	// Web server
	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.listen", ":8080")
	v.SetDefault("webserver.bodylimit", "12M")
	v.SetDefault("webserver.timeout", 60*time.Second)
	v.SetDefault("webserver.debug", false)

	// iNaturalist providers
	v.SetDefault("inaturalist.apitoken", "")
	v.SetDefault("inaturalist.useragent", DefaultUserAgent)
	v.SetDefault("inaturalist.visionurl", DefaultVisionURL)
	v.SetDefault("inaturalist.taxaurl", DefaultTaxaURL)
	v.SetDefault("inaturalist.timeout", DefaultTimeout)
	v.SetDefault("inaturalist.cachettl", 24*time.Hour)
	v.SetDefault("inaturalist.ratelimit", 1.0)
	v.SetDefault("inaturalist.burst", 5)

	// Catalog store
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite.path", "wildlife.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", "3306")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "wildlife")
	v.SetDefault("database.slowquery", 200*time.Millisecond)

	// Species resolution
	v.SetDefault("species.findminquerylength", 4)
	v.SetDefault("species.search.default", 20)
	v.SetDefault("species.search.max", 100)
	v.SetDefault("species.find.default", 10)
	v.SetDefault("species.find.max", 50)
	v.SetDefault("species.popular.default", 50)
	v.SetDefault("species.popular.max", 200)
	v.SetDefault("species.classification.default", 20)
	v.SetDefault("species.classification.max", 100)

	// Telemetry
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.debug", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// DefaultSettings returns settings populated only from defaults, for tests and tools.
func DefaultSettings() *Settings {
	v := viper.New()
	setDefaultConfig(v)

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(err)
	}
	return settings
}
