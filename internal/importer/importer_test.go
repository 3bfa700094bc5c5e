package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/datastoretest"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/observability/metrics"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/survey"
)

const header = "decimalLatitude,decimalLongitude,locality,scientificNameID,scientificName," +
	"kingdom,phylum,class,order_,family,genus,scientificNameAuthorship\n"

const surveyCSV = header +
	`-8.5,115.25,Nusa Penida,urn:lsid:marinespecies.org:taxname:145123,Jania rubens,Plantae,Rhodophyta,Florideophyceae,Corallinales,Corallinaceae,Jania,"(Linnaeus) J.V.Lamouroux, 1816"` + "\n" +
	`-8.5,115.25,Nusa Penida,urn:lsid:marinespecies.org:taxname:164777,Rhipiliella,Plantae,Chlorophyta,Ulvophyceae,Bryopsidales,Rhipiliaceae,Rhipiliella,"Kraft, 1986"` + "\n" +
	`-8.75,115.5,,urn:lsid:marinespecies.org:taxname:145123,Jania rubens,Plantae,Rhodophyta,Florideophyceae,Corallinales,Corallinaceae,Jania,"(Linnaeus) J.V.Lamouroux, 1816"` + "\n"

type testEnv struct {
	store    *datastore.Store
	svc      *survey.Service
	importer *Importer
	recorder *metrics.TestRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	quiet := logger.NewSlogLogger(nil, logger.LogLevelError, time.UTC)
	store := datastoretest.NewStore(t)
	svc := survey.NewService(store, survey.WithLogger(quiet))
	recorder := metrics.NewTestRecorder()

	return &testEnv{
		store:    store,
		svc:      svc,
		importer: New(svc, WithLogger(quiet), WithRecorder(recorder)),
		recorder: recorder,
	}
}

func (e *testEnv) observations(t *testing.T) int64 {
	t.Helper()
	n, err := e.store.CountObservations(context.Background())
	require.NoError(t, err)
	return n
}

func TestImportCommitsAllRows(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.importer.Import(ctx, strings.NewReader(surveyCSV), "survey.csv")
	require.NoError(t, err)

	assert.Equal(t, "survey.csv", result.Source)
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, 2, result.Species)
	assert.Equal(t, 2, result.Locations)
	assert.Equal(t, int64(3), env.observations(t))

	jania, err := env.store.GetSpecies(ctx, 145123)
	require.NoError(t, err)
	assert.Equal(t, "Jania rubens", jania.Name)
	assert.Equal(t, "(Linnaeus) J.V.Lamouroux, 1816", jania.Authorship)

	locs, err := env.svc.SpeciesLocations(ctx, 145123)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	var withoutLocality int
	for _, loc := range locs {
		if !loc.HasLocality() {
			withoutLocality++
		}
	}
	assert.Equal(t, 1, withoutLocality, "empty locality is stored as null")

	assert.Equal(t, 1, env.recorder.GetOperationCount(metrics.OpImportBatch, metrics.StatusSuccess))
	assert.Equal(t, 3, env.recorder.GetOperationCount(metrics.OpImportRow, metrics.StatusSuccess))
}

func TestImportIsIdempotentForEntities(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.importer.Import(ctx, strings.NewReader(surveyCSV), "first.csv")
	require.NoError(t, err)
	_, err = env.importer.Import(ctx, strings.NewReader(surveyCSV), "second.csv")
	require.NoError(t, err)

	count, err := env.store.CountSpecies(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "species are never duplicated")
	assert.Equal(t, int64(6), env.observations(t), "every row records an observation")
}

func TestImportColumnOrderIndependent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	csv := "\ufeffscientificNameID,scientificName,decimalLongitude,decimalLatitude,locality," +
		"kingdom,phylum,class,order_,family,genus,scientificNameAuthorship\n" +
		"145123,Jania rubens,115.25,-8.5,Reef,Plantae,Rhodophyta,Florideophyceae,Corallinales,Corallinaceae,Jania,Lamouroux\n"

	result, err := env.importer.Import(context.Background(), strings.NewReader(csv), "reordered.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)

	species, err := env.svc.SpeciesAtPoint(context.Background(), -8.5, 115.25)
	require.NoError(t, err)
	require.Len(t, species, 1)
	assert.Equal(t, int64(145123), species[0].ID)
}

func TestImportRollsBackOnError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		csv      string
		category errors.ErrorCategory
		contains string
	}{
		{
			name:     "bad latitude",
			csv:      surveyCSV + "north,115.25,,145124,Jania,Plantae,Rhodophyta,F,C,C,Jania,X\n",
			category: errors.CategoryFileParsing,
			contains: "bad.csv:5",
		},
		{
			name:     "unparseable species id",
			csv:      surveyCSV + "1,2,,urn:lsid:none,Jania,Plantae,Rhodophyta,F,C,C,Jania,X\n",
			category: errors.CategoryValidation,
			contains: "bad.csv:5",
		},
		{
			name:     "missing columns",
			csv:      "decimalLatitude,decimalLongitude\n1,2\n",
			category: errors.CategoryFileParsing,
			contains: "scientificNameID",
		},
		{
			name:     "empty file",
			csv:      "",
			category: errors.CategoryFileParsing,
			contains: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			result, err := env.importer.Import(context.Background(), strings.NewReader(tt.csv), "bad.csv")
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.category, errors.CategoryFor(err))
			assert.Contains(t, err.Error(), tt.contains)

			assert.Zero(t, env.observations(t), "nothing is committed")
			count, err := env.store.CountSpecies(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)

			assert.Equal(t, 1, env.recorder.GetOperationCount(metrics.OpImportBatch, metrics.StatusError))
		})
	}
}

func TestImportCancelled(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.importer.Import(ctx, strings.NewReader(surveyCSV), "survey.csv")
	require.Error(t, err)
	assert.Zero(t, env.observations(t))
}

func TestImportFromFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "survey.csv")
	require.NoError(t, os.WriteFile(path, []byte(surveyCSV), 0o600))

	sources := &Sources{}
	result, err := env.importer.ImportFrom(context.Background(), sources, path)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, 1, env.recorder.GetOperationCount(metrics.OpImportFetch, metrics.StatusSuccess))

	_, err = env.importer.ImportFrom(context.Background(), sources, filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryFileIO, errors.CategoryFor(err))
	assert.Equal(t, 1, env.recorder.GetOperationCount(metrics.OpImportFetch, metrics.StatusError))
}
