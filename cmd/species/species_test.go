package species

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/wildlife-go/internal/buildinfo"
	"github.com/tphakala/wildlife-go/internal/conf"
	internalspecies "github.com/tphakala/wildlife-go/internal/species"
)

func TestSearchCommandOnEmptyCatalog(t *testing.T) {
	t.Parallel()
	t.Attr("component", "cli")

	settings := conf.DefaultSettings()
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "catalog.db")

	cmd := Command(settings, buildinfo.NewContext("test", ""))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"search", "red", "fox"})

	require.NoError(t, cmd.ExecuteContext(t.Context()))

	var views []internalspecies.View
	require.NoError(t, json.Unmarshal(out.Bytes(), &views))
	assert.Empty(t, views)
}

func TestImportCommandRejectsBadTaxonID(t *testing.T) {
	t.Parallel()

	cmd := Command(conf.DefaultSettings(), nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"import", "fox"})

	err := cmd.ExecuteContext(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid taxon id "fox"`)
}
