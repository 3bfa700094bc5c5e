//go:build integration && mysql

package datastore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/datastoretest"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
)

func newMySQLStore(t *testing.T) *datastore.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("wcmc"),
		tcmysql.WithUsername("survey"),
		tcmysql.WithPassword("survey"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	mgr, err := datastore.NewMySQLManager(&conf.MySQLSettings{
		Host:     host,
		Port:     port.Int(),
		Username: "survey",
		Password: "survey",
		Database: "wcmc",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	require.NoError(t, mgr.Initialize(ctx))

	return datastore.NewStore(mgr.DB())
}

func TestMySQL_StorePrimitives(t *testing.T) {
	ctx := context.Background()
	store := newMySQLStore(t)

	datastoretest.Seed(t, store,
		[]entities.Species{datastoretest.Species(1, "One"), datastoretest.Species(2, "Two")},
		[]entities.Location{{Latitude: 0, Longitude: 0}, {Latitude: 0, Longitude: 10}},
		[][2]int64{{2, 1}, {1, 1}, {1, 2}},
	)

	got, err := store.QuerySpecies(ctx, datastore.SpeciesWithin(0, 0, 10))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)

	dup := entities.Location{Latitude: 0, Longitude: 10}
	created, err := store.InsertLocation(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created)

	removed, err := store.DeleteSpeciesCascade(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestMySQL_ConcurrentLocationInsert(t *testing.T) {
	ctx := context.Background()
	store := newMySQLStore(t)

	const workers = 8
	var wg sync.WaitGroup
	created := make(chan bool, workers)
	for range workers {
		wg.Go(func() {
			loc := entities.Location{Latitude: 51.5, Longitude: -0.12}
			ok, err := store.InsertLocation(ctx, &loc)
			assert.NoError(t, err)
			created <- ok
		})
	}
	wg.Wait()
	close(created)

	wins := 0
	for ok := range created {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	locations, err := store.QueryLocations(ctx, datastore.LocationAt(51.5, -0.12))
	require.NoError(t, err)
	assert.Len(t, locations, 1)
}
