package reportclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/observability/metrics"
)

const baseURL = "http://api.test"

var testSpecies = []Species{
	{ID: 1, Name: "Species1", Phylum: "Phylum1", Kingdom: "Kingdom1"},
	{ID: 2, Name: "Species2", Phylum: "Phylum2", Kingdom: "Kingdom1"},
	{ID: 3, Name: "Species3", Phylum: "Phylum3", Kingdom: "Kingdom3"},
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *httpmock.MockTransport) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	quiet := logger.NewSlogLogger(nil, logger.LogLevelError, time.UTC)
	opts = append([]Option{
		WithHTTPClient(&http.Client{Transport: transport}),
		WithLogger(quiet),
		WithPageSize(2),
	}, opts...)

	c, err := New(baseURL, opts...)
	require.NoError(t, err)
	return c, transport
}

func registerPages(transport *httpmock.MockTransport, species []Species, pageSize int) {
	page := 0
	for start := 0; start < len(species); start += pageSize {
		end := min(start+pageSize, len(species))
		transport.RegisterResponderWithQuery(http.MethodGet, baseURL+"/species",
			map[string]string{"page": fmt.Sprint(page), "page_size": fmt.Sprint(pageSize)},
			httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
				"page":      page,
				"page_size": pageSize,
				"data":      species[start:end],
			}))
		page++
	}
	transport.RegisterResponderWithQuery(http.MethodGet, baseURL+"/species",
		map[string]string{"page": fmt.Sprint(page), "page_size": fmt.Sprint(pageSize)},
		httpmock.NewJsonResponderOrPanic(http.StatusNotFound, map[string]string{
			"detail": fmt.Sprintf("Page number %d out of range.", page),
		}))
}

func registerLocations(transport *httpmock.MockTransport, id int64, n int) {
	locations := make([]map[string]float64, n)
	for i := range locations {
		locations[i] = map[string]float64{"latitude": float64(i), "longitude": float64(-i)}
	}
	transport.RegisterResponder(http.MethodGet, fmt.Sprintf("%s/species/%d/locations", baseURL, id),
		httpmock.NewJsonResponderOrPanic(http.StatusOK, locations))
}

func TestFetchSpeciesWalksPagesUntilNotFound(t *testing.T) {
	t.Parallel()

	recorder := metrics.NewTestRecorder()
	c, transport := newTestClient(t, WithRecorder(recorder))
	registerPages(transport, testSpecies, 2)

	species, err := c.FetchSpecies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSpecies, species)
	assert.Equal(t, 3, transport.GetTotalCallCount())
	assert.Equal(t, 3, recorder.GetOperationCount(metrics.OpFetchPage, metrics.StatusSuccess))
}

func TestFetchSpeciesEmptyDatabase(t *testing.T) {
	t.Parallel()

	c, transport := newTestClient(t)
	registerPages(transport, nil, 2)

	species, err := c.FetchSpecies(context.Background())
	require.NoError(t, err)
	assert.Empty(t, species)
}

func TestCountLocations(t *testing.T) {
	t.Parallel()

	c, transport := newTestClient(t)
	registerLocations(transport, 1, 0)
	registerLocations(transport, 2, 1)
	registerLocations(transport, 3, 2)

	counts, err := c.CountLocations(context.Background(), testSpecies)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 0, 2: 1, 3: 2}, counts)
}

func TestCountLocationsBoundsConcurrency(t *testing.T) {
	t.Parallel()

	c, transport := newTestClient(t, WithConcurrency(2), WithRateLimit(1000))

	var inFlight, peak atomic.Int32
	species := make([]Species, 10)
	for i := range species {
		species[i] = Species{ID: int64(i + 1), Name: fmt.Sprint("S", i), Phylum: "P", Kingdom: "K"}
		transport.RegisterResponder(http.MethodGet, fmt.Sprintf("%s/species/%d/locations", baseURL, i+1),
			func(req *http.Request) (*http.Response, error) {
				n := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				return httpmock.NewStringResponse(http.StatusOK, "[]"), nil
			})
	}

	_, err := c.CountLocations(context.Background(), species)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 10, transport.GetTotalCallCount())
}

func TestCountLocationsPropagatesServerErrors(t *testing.T) {
	t.Parallel()

	recorder := metrics.NewTestRecorder()
	c, transport := newTestClient(t, WithRecorder(recorder))
	registerLocations(transport, 1, 1)
	registerLocations(transport, 2, 1)
	transport.RegisterResponder(http.MethodGet, baseURL+"/species/3/locations",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"detail":"Internal server error"}`))

	_, err := c.CountLocations(context.Background(), testSpecies)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryHTTP, errors.CategoryFor(err))
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, 1, recorder.GetOperationCount(metrics.OpFetchLocations, metrics.StatusError))
}

func TestRunPrintsReport(t *testing.T) {
	t.Parallel()

	species := []Species{
		{ID: 10, Name: "Jania rubens", Phylum: "Rhodophyta", Kingdom: "Plantae"},
		{ID: 11, Name: "Phyllospongia", Phylum: "Porifera", Kingdom: "Animalia"},
		{ID: 12, Name: "Rhipiliella", Phylum: "Chlorophyta", Kingdom: "Plantae"},
		{ID: 13, Name: "Amphiroa", Phylum: "Rhodophyta", Kingdom: "Plantae"},
	}
	c, transport := newTestClient(t)
	registerPages(transport, species, 2)
	registerLocations(transport, 10, 3)
	registerLocations(transport, 11, 1)
	registerLocations(transport, 12, 2)
	registerLocations(transport, 13, 3)

	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, PhylumSummary{
		Kingdom: "Animalia", Phylum: "Porifera", Species: []string{"Phyllospongia"}, Locations: 1,
	}, summary[0])
	assert.Equal(t, "Chlorophyta", summary[1].Phylum)
	assert.Equal(t, []string{"Jania rubens", "Amphiroa"}, summary[2].Species)

	var out bytes.Buffer
	require.NoError(t, WriteTable(&out, summary))
	assert.Contains(t, out.String(), "KINGDOM")
	assert.Contains(t, out.String(), "Jania rubens, Amphiroa")
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New("not a url")
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfiguration, errors.CategoryFor(err))

	c, err := NewFromSettings(&conf.ReportSettings{
		BaseURL:     "http://localhost:8000/",
		PageSize:    conf.MaxPageSize + 1,
		Concurrency: 4,
		RateLimit:   5,
		Timeout:     time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.baseURL.String())
	assert.Equal(t, DefaultPageSize, c.pageSize, "out of range page size is ignored")
	assert.Equal(t, 4, c.concurrency)
	assert.NotNil(t, c.limiter)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}
