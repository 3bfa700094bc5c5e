package datastore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/datastoretest"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
)

func speciesIDs(species []entities.Species) []int64 {
	ids := make([]int64, 0, len(species))
	for i := range species {
		ids = append(ids, species[i].ID)
	}
	return ids
}

func TestStore_GetSpecies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := datastoretest.NewStore(t)

	sp := datastoretest.Species(145123, "Jania adhaerens")
	created, err := store.InsertSpecies(ctx, &sp)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := store.GetSpecies(ctx, 145123)
	require.NoError(t, err)
	assert.Equal(t, sp, *got)

	_, err = store.GetSpecies(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, datastore.ErrSpeciesNotFound)
	assert.True(t, errors.IsNotFound(err))
}

func TestStore_InsertSpeciesExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := datastoretest.NewStore(t)

	first := datastoretest.Species(1, "First")
	_, err := store.InsertSpecies(ctx, &first)
	require.NoError(t, err)

	second := datastoretest.Species(1, "Second")
	created, err := store.InsertSpecies(ctx, &second)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.GetSpecies(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Name)
}

func TestStore_InsertLocationExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := datastoretest.NewStore(t)

	first := entities.Location{Latitude: -17.5, Longitude: 146.25, Locality: datastoretest.Locality("Reef")}
	created, err := store.InsertLocation(ctx, &first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	second := entities.Location{Latitude: -17.5, Longitude: 146.25}
	created, err = store.InsertLocation(ctx, &second)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.FindLocationAt(ctx, -17.5, 146.25)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	require.NotNil(t, got.Locality)
	assert.Equal(t, "Reef", *got.Locality)

	_, err = store.FindLocationAt(ctx, -17.5, 146.250001)
	assert.ErrorIs(t, err, datastore.ErrLocationNotFound)

	_, err = store.GetLocation(ctx, first.ID+100)
	assert.ErrorIs(t, err, datastore.ErrLocationNotFound)
}

func TestStore_SpatialPredicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := datastoretest.NewStore(t)

	datastoretest.Seed(t, store,
		[]entities.Species{
			datastoretest.Species(1, "Zeta"),
			datastoretest.Species(2, "Alpha"),
			datastoretest.Species(3, "Mu"),
		},
		[]entities.Location{
			{Latitude: 0, Longitude: 0},
			{Latitude: 0, Longitude: 10},
			{Latitude: 5, Longitude: 5},
		},
		// species 1 twice at the origin, species 2 at the origin and on the
		// radius boundary, species 3 only at (5, 5)
		[][2]int64{{1, 1}, {2, 1}, {1, 1}, {2, 2}, {3, 3}},
	)

	tests := []struct {
		name string
		pred datastore.Predicate
		want []int64
	}{
		{"exact point", datastore.SpeciesAt(0, 0), []int64{1, 2}},
		{"exact point with no observations", datastore.SpeciesAt(1, 1), []int64{}},
		{"radius boundary is inclusive", datastore.SpeciesWithin(0, 0, 10), []int64{1, 2, 3}},
		{"radius just short of boundary", datastore.SpeciesWithin(0, 10, 7.07), []int64{2}},
		{"radius reaches diagonal", datastore.SpeciesWithin(0, 10, 7.08), []int64{2, 3}},
		{"zero radius", datastore.SpeciesWithin(5, 5, 0), []int64{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.QuerySpecies(ctx, tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.want, speciesIDs(got))
		})
	}
}

func TestStore_OrderedWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := datastoretest.NewStore(t)

	datastoretest.Seed(t, store,
		[]entities.Species{
			datastoretest.Species(30, "Beta"),
			datastoretest.Species(10, "Alpha"),
			datastoretest.Species(20, "Beta"),
		}, nil, nil)

	all, err := store.QuerySpecies(ctx, datastore.OrderedByName())
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, speciesIDs(all))

	page, err := store.QuerySpecies(ctx, datastore.OrderedByName(), datastore.Window(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []int64{20}, speciesIDs(page))

	count, err := store.CountSpecies(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestStore_LocationsOfSpecies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := datastoretest.NewStore(t)

	datastoretest.Seed(t, store,
		[]entities.Species{datastoretest.Species(1, "One")},
		[]entities.Location{
			{Latitude: 1, Longitude: 1},
			{Latitude: 2, Longitude: 2},
		},
		[][2]int64{{1, 2}, {1, 1}, {1, 2}},
	)

	locations, err := store.QueryLocations(ctx, datastore.LocationsOfSpecies(1))
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, uint(1), locations[0].ID)
	assert.Equal(t, uint(2), locations[1].ID)
	assert.Nil(t, locations[0].Locality)
}

func TestStore_DeleteSpeciesCascade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := datastoretest.NewStore(t)

	datastoretest.Seed(t, store,
		[]entities.Species{datastoretest.Species(1, "One"), datastoretest.Species(2, "Two")},
		[]entities.Location{{Latitude: 1, Longitude: 1}},
		[][2]int64{{1, 1}, {1, 1}, {2, 1}},
	)

	removed, err := store.DeleteSpeciesCascade(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = store.GetSpecies(ctx, 1)
	assert.ErrorIs(t, err, datastore.ErrSpeciesNotFound)

	remaining, err := store.CountObservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)

	_, err = store.GetLocation(ctx, 1)
	require.NoError(t, err, "locations survive species deletion")

	_, err = store.DeleteSpeciesCascade(ctx, 1)
	assert.ErrorIs(t, err, datastore.ErrSpeciesNotFound)
}

func TestStore_ForeignKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mgr := datastoretest.NewManager(t)
	store := datastore.NewStore(mgr.DB())

	datastoretest.Seed(t, store,
		[]entities.Species{datastoretest.Species(1, "One")},
		[]entities.Location{{Latitude: 1, Longitude: 1}},
		[][2]int64{{1, 1}},
	)

	err := store.InsertObservation(ctx, &entities.Observation{SpeciesID: 99, LocationID: 1})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))

	err = mgr.DB().Delete(&entities.Location{}, 1).Error
	require.Error(t, err, "referenced locations cannot be removed")
}

func TestStore_TransactionRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := datastoretest.NewStore(t)
	boom := errors.NewStd("boom")

	err := store.Transaction(ctx, func(tx *datastore.Store) error {
		sp := datastoretest.Species(7, "Seven")
		if _, err := tx.InsertSpecies(ctx, &sp); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := store.CountSpecies(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = store.Transaction(ctx, func(tx *datastore.Store) error {
		sp := datastoretest.Species(7, "Seven")
		_, err := tx.InsertSpecies(ctx, &sp)
		return err
	})
	require.NoError(t, err)

	count, err = store.CountSpecies(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStore_UpdateSpeciesName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := datastoretest.NewStore(t)

	sp := datastoretest.Species(5, "Old")
	_, err := store.InsertSpecies(ctx, &sp)
	require.NoError(t, err)

	require.NoError(t, store.UpdateSpeciesName(ctx, 5, "New"))

	got, err := store.GetSpecies(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, sp.Phylum, got.Phylum)
}

type fakeRecorder struct {
	mu           sync.Mutex
	operations   map[string]int
	errors       map[string]int
	transactions map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		operations:   make(map[string]int),
		errors:       make(map[string]int),
		transactions: make(map[string]int),
	}
}

func (f *fakeRecorder) RecordDbOperation(operation, table, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.operations[operation+"/"+table+"/"+status]++
}

func (f *fakeRecorder) RecordDbOperationDuration(string, string, float64) {}

func (f *fakeRecorder) RecordDbOperationError(operation, table, errorType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[operation+"/"+table+"/"+errorType]++
}

func (f *fakeRecorder) RecordTransaction(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions[status]++
}

func (f *fakeRecorder) RecordTransactionDuration(float64) {}

func TestStore_Metrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	recorder := newFakeRecorder()
	store := datastoretest.NewStore(t, datastore.WithMetrics(recorder))

	sp := datastoretest.Species(1, "One")
	_, err := store.InsertSpecies(ctx, &sp)
	require.NoError(t, err)
	_, err = store.GetSpecies(ctx, 1)
	require.NoError(t, err)
	_, err = store.GetSpecies(ctx, 2)
	require.Error(t, err)
	err = store.InsertObservation(ctx, &entities.Observation{SpeciesID: 1, LocationID: 42})
	require.Error(t, err)
	_ = store.Transaction(ctx, func(*datastore.Store) error { return nil })

	assert.Equal(t, 1, recorder.operations["insert/species/success"])
	assert.Equal(t, 1, recorder.operations["get/species/success"])
	assert.Equal(t, 1, recorder.operations["get/species/not_found"])
	assert.Equal(t, 1, recorder.errors["insert/species_locations/database"])
	assert.Empty(t, recorder.errors["get/species/not-found"], "not found is not an error")
	assert.Equal(t, 1, recorder.transactions["committed"])
}
