package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/buildinfo"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/datastoretest"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
)

func TestOpenBuildsWorkingService(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Database.Type = conf.DatabaseSQLite
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "survey.db")

	ctx := context.Background()
	a, err := Open(ctx, settings, buildinfo.NewContext("test", ""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.Store.Ping(ctx))
	datastoretest.Seed(t, a.Store,
		[]entities.Species{datastoretest.Species(145123, "Jania rubens")},
		[]entities.Location{{Latitude: -8.5, Longitude: 115.25}},
		[][2]int64{{145123, 1}})

	page, err := a.Service.ListSpecies(ctx, 0, conf.DefaultPageSize)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Jania rubens", page.Data[0].Name)

	stop := a.StartEvents(ctx)
	stop()
}

func TestOpenRejectsUnknownDatabase(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Database.Type = "postgres"

	_, err := Open(context.Background(), settings, nil)
	assert.Error(t, err)
}
