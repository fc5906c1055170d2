package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/wildlife-go/internal/buildinfo"
	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/datastore"
	"github.com/tphakala/wildlife-go/internal/errors"
)

func TestNewWiresInMemoryCatalog(t *testing.T) {
	t.Parallel()
	t.Attr("component", "app")

	settings := conf.DefaultSettings()
	settings.Database.SQLite.Path = datastore.MemoryPath

	a, err := New(settings, buildinfo.NewContext("v0.1.0", ""))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	require.NotNil(t, a.Species)
	require.NotNil(t, a.Identify)
	require.NotNil(t, a.Metrics)
	assert.Equal(t, datastore.MemoryPath, a.Store.Path())

	entries, err := a.Species.Popular(t.Context(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewRejectsUnknownDatabase(t *testing.T) {
	t.Parallel()

	settings := conf.DefaultSettings()
	settings.Database.Type = "postgres"

	_, err := New(settings, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
