package datastore

import (
	"path/filepath"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/datastore/entities"
	"github.com/tphakala/wildlife-go/internal/errors"
)

func TestOpenInMemorySQLite(t *testing.T) {
	t.Parallel()
	t.Attr("component", "datastore")

	m, err := Open(&conf.DatabaseSettings{Type: "sqlite", SQLite: conf.SQLiteSettings{Path: MemoryPath}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	assert.False(t, m.IsMySQL())
	assert.Equal(t, MemoryPath, m.Path())
	assert.True(t, m.DB().Migrator().HasTable(&entities.Species{}))
	assert.True(t, m.DB().Migrator().HasIndex(&entities.Species{}, "idx_species_taxon_id"))
}

func TestSQLiteManagerCreatesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.db")
	m, err := NewSQLiteManager(SQLiteConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Initialize())
	// Migrating twice is a no-op
	require.NoError(t, m.Initialize())

	assert.Equal(t, path, m.Path())
	assert.FileExists(t, path)
}

func TestInitializeBackfillsSearchColumns(t *testing.T) {
	t.Parallel()

	m, err := NewSQLiteManager(SQLiteConfig{Path: MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Initialize())

	// A row written without the hook, as by an older schema
	require.NoError(t, m.DB().Exec(
		"INSERT INTO species (taxon_id, common_name, scientific_name, family, created_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)",
		42, "Écureuil roux", "Sciurus vulgaris", "Sciuridae").Error)

	require.NoError(t, m.Initialize())

	var s entities.Species
	require.NoError(t, m.DB().Where("taxon_id = ?", 42).First(&s).Error)
	assert.Equal(t, "écureuil roux", s.SearchCommon)
	assert.Equal(t, "sciurus vulgaris", s.SearchScientific)
	assert.Equal(t, "sciuridae", s.SearchFamily)
	assert.Empty(t, s.SearchGenus)
}

func TestOpenRejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := Open(&conf.DatabaseSettings{Type: "postgres"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestNewMySQLManagerRequiresHost(t *testing.T) {
	t.Parallel()

	_, err := NewMySQLManager(&MySQLConfig{Database: "wildlife"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestMySQLConfigDSN(t *testing.T) {
	t.Parallel()

	cfg := &MySQLConfig{
		Host:     "db.internal",
		Username: "wildlife",
		Password: "p@ss:word/with?chars",
		Database: "catalog",
	}

	parsed, err := mysqldriver.ParseDSN(cfg.DSN())
	require.NoError(t, err)

	assert.Equal(t, "wildlife", parsed.User)
	assert.Equal(t, "p@ss:word/with?chars", parsed.Passwd)
	assert.Equal(t, "db.internal:3306", parsed.Addr)
	assert.Equal(t, "catalog", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 10*time.Second, parsed.Timeout)
}
