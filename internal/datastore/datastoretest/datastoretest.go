// Package datastoretest provides an in-memory store for tests.
package datastoretest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
)

// NewManager opens a migrated in-memory SQLite database closed at test cleanup.
func NewManager(tb testing.TB) datastore.Manager {
	tb.Helper()

	mgr, err := datastore.NewSQLiteManager(datastore.MemoryPath, nil)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = mgr.Close() })

	require.NoError(tb, mgr.Initialize(context.Background()))
	return mgr
}

// NewStore returns a Store over a fresh in-memory database.
func NewStore(tb testing.TB, opts ...datastore.StoreOption) *datastore.Store {
	tb.Helper()
	return datastore.NewStore(NewManager(tb).DB(), opts...)
}

// Seed inserts species, locations and observations given as
// (speciesID, locationID) pairs.
func Seed(tb testing.TB, store *datastore.Store, species []entities.Species, locations []entities.Location, observations [][2]int64) {
	tb.Helper()
	ctx := context.Background()

	for i := range species {
		_, err := store.InsertSpecies(ctx, &species[i])
		require.NoError(tb, err)
	}
	for i := range locations {
		_, err := store.InsertLocation(ctx, &locations[i])
		require.NoError(tb, err)
	}
	for _, pair := range observations {
		require.NoError(tb, store.InsertObservation(ctx, &entities.Observation{
			SpeciesID:  pair[0],
			LocationID: uint(pair[1]),
		}))
	}
}

// Species returns a fully classified species with the given id and name.
func Species(id int64, name string) entities.Species {
	return entities.Species{
		ID:         id,
		Name:       name,
		Kingdom:    "Plantae",
		Phylum:     "Rhodophyta",
		Class:      "Florideophyceae",
		Order:      "Corallinales",
		Family:     "Corallinaceae",
		Genus:      "Jania",
		Authorship: "J.V.Lamouroux, 1816",
	}
}

// Locality returns a pointer to name.
func Locality(name string) *string {
	return &name
}
