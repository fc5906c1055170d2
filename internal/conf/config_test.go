package conf

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	t.Parallel()
	t.Attr("component", "conf")

	s := DefaultSettings()

	assert.Equal(t, DefaultUserAgent, s.INaturalist.UserAgent)
	assert.Equal(t, DefaultVisionURL, s.INaturalist.VisionURL)
	assert.Equal(t, 30*time.Second, s.INaturalist.Timeout)
	assert.Equal(t, 24*time.Hour, s.INaturalist.CacheTTL)
	assert.Equal(t, DatabaseSQLite, s.Database.Type)
	assert.Equal(t, 4, s.Species.FindMinQueryLength)
	assert.Equal(t, LimitSettings{Default: 20, Max: 100}, s.Species.Search)
	assert.Equal(t, LimitSettings{Default: 10, Max: 50}, s.Species.Find)
	assert.Equal(t, LimitSettings{Default: 50, Max: 200}, s.Species.Popular)
	assert.Equal(t, "info", s.Logging.DefaultLevel)
	require.NotNil(t, s.Logging.FileOutput)
	assert.Equal(t, 100, s.Logging.FileOutput.MaxSize)
	assert.Equal(t, int64(12_000_000), s.WebServer.BodyLimitBytes())

	require.NoError(t, ValidateSettings(s))
}

func TestLimitClamp(t *testing.T) {
	t.Parallel()

	l := LimitSettings{Default: 20, Max: 100}
	assert.Equal(t, 20, l.Clamp(0))
	assert.Equal(t, 20, l.Clamp(-5))
	assert.Equal(t, 7, l.Clamp(7))
	assert.Equal(t, 100, l.Clamp(1000))
}

func TestLoadWritesDefaultConfigWhenMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settings, err := loadWith(viper.New(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, DefaultTaxaURL, settings.INaturalist.TaxaURL)

	written, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(written), "taxaurl: https://api.inaturalist.org/v1")
	assert.Contains(t, string(written), "timeout: 30s")

	// Second load reads the file that was just written
	again, err := loadWith(viper.New(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, settings.INaturalist, again.INaturalist)
}

func TestLoadReadsExistingConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `
inaturalist:
  apitoken: secret-token
  timeout: 5s
database:
  type: MySQL
  mysql:
    host: db.internal
    database: catalog
species:
  find:
    default: 5
    max: 25
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	settings, err := loadWith(viper.New(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, "secret-token", settings.INaturalist.APIToken)
	assert.Equal(t, 5*time.Second, settings.INaturalist.Timeout)
	assert.Equal(t, DatabaseMySQL, settings.Database.Type, "type is normalised to lower case")
	assert.Equal(t, "db.internal", settings.Database.MySQL.Host)
	assert.Equal(t, LimitSettings{Default: 5, Max: 25}, settings.Species.Find)
	assert.Equal(t, DefaultUserAgent, settings.INaturalist.UserAgent, "unset keys keep defaults")
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `
database:
  type: postgres
inaturalist:
  taxaurl: not-a-url
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	_, err := loadWith(viper.New(), []string{dir})
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("WILDLIFE_INATURALIST_APITOKEN", "from-env")
	t.Setenv("WILDLIFE_DATABASE_SQLITE_PATH", "/tmp/catalog.db")

	settings, err := loadWith(viper.New(), []string{t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, "from-env", settings.INaturalist.APIToken)
	assert.Equal(t, "/tmp/catalog.db", settings.Database.SQLite.Path)
}

func TestDefaultConfigPathsPreferUserConfig(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix search order")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)

	paths, err := defaultConfigPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(home, ".config", appName),
		".",
		filepath.Join("/etc", appName),
	}, paths)
}

func TestBindEnvVarsReportsInvalidValues(t *testing.T) {
	t.Setenv("WILDLIFE_DATABASE_MYSQL_PORT", "99999")
	t.Setenv("WILDLIFE_DEBUG", "maybe")

	err := bindEnvVars(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WILDLIFE_DATABASE_MYSQL_PORT")
	assert.Contains(t, err.Error(), "WILDLIFE_DEBUG")
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"bad body limit", func(s *Settings) { s.WebServer.BodyLimit = "lots" }, "body limit"},
		{"zero timeout", func(s *Settings) { s.INaturalist.Timeout = 0 }, "timeout"},
		{"zero burst with rate limit", func(s *Settings) { s.INaturalist.Burst = 0 }, "burst"},
		{"missing sqlite path", func(s *Settings) { s.Database.SQLite.Path = "" }, "sqlite"},
		{"max below default", func(s *Settings) { s.Species.Search.Max = 1 }, "search"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "DSN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := DefaultSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	s := DefaultSettings()
	s.INaturalist.APIToken = "abc"
	require.NoError(t, SaveYAMLConfig(path, s))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "abc", v.GetString("inaturalist.apitoken"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is cleaned up")
}
