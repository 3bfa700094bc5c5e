package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

type recordedRequest struct {
	method string
	path   string
	status int
}

type fakeHTTPRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	errors   []string
	sizes    []int64
}

func (f *fakeHTTPRecorder) RecordHTTPRequest(method, path string, statusCode int, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{method, path, statusCode})
}

func (f *fakeHTTPRecorder) RecordHTTPRequestError(_, _, errorType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errorType)
}

func (f *fakeHTTPRecorder) RecordHTTPResponseSize(_, _ string, sizeBytes int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizes = append(f.sizes, sizeBytes)
}

func serve(e *echo.Echo, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	t.Parallel()

	recorder := &fakeHTTPRecorder{}
	e := echo.New()
	e.Use(NewMetrics(recorder))
	e.GET("/species/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "down")
	})

	serve(e, http.MethodGet, "/species/145123", "", nil)
	serve(e, http.MethodGet, "/boom", "", nil)

	require.Len(t, recorder.requests, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/species/:id", http.StatusOK}, recorder.requests[0])
	assert.Equal(t, http.StatusServiceUnavailable, recorder.requests[1].status)
	assert.Equal(t, []string{"503"}, recorder.errors)
	assert.Equal(t, int64(2), recorder.sizes[0])
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	t.Parallel()

	store := cache.New(time.Minute, 0)
	var replays, calls int
	e := echo.New()
	e.POST("/species/:id/locations", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, map[string]int{"call": calls})
	}, NewIdempotency(store, func() { replays++ }))

	headers := map[string]string{IdempotencyKeyHeader: "abc"}
	first := serve(e, http.MethodPost, "/species/1/locations", "{}", headers)
	second := serve(e, http.MethodPost, "/species/1/locations", "{}", headers)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, replays)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(IdempotentReplayedHeader))
	assert.Contains(t, second.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)

	// Same key on another path, and no key at all, both reach the handler.
	serve(e, http.MethodPost, "/species/2/locations", "{}", headers)
	serve(e, http.MethodPost, "/species/1/locations", "{}", nil)
	assert.Equal(t, 3, calls)
}

func TestIdempotencySkipsFailures(t *testing.T) {
	t.Parallel()

	store := cache.New(time.Minute, 0)
	var calls int
	e := echo.New()
	e.POST("/x", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "missing"})
	}, NewIdempotency(store, nil))

	headers := map[string]string{IdempotencyKeyHeader: "k"}
	serve(e, http.MethodPost, "/x", "", headers)
	rec := serve(e, http.MethodPost, "/x", "", headers)

	assert.Equal(t, 2, calls)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get(IdempotentReplayedHeader))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	t.Parallel()

	store := cache.New(time.Minute, 0)
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	e := echo.New()
	e.POST("/species/:id/locations", func(c echo.Context) error {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return c.JSON(http.StatusOK, map[string]string{"survey_location": "created"})
	}, NewIdempotency(store, nil))

	headers := map[string]string{IdempotencyKeyHeader: "k1"}
	firstDone := make(chan *httptest.ResponseRecorder)
	go func() {
		firstDone <- serve(e, http.MethodPost, "/species/1/locations", "{}", headers)
	}()
	<-started

	duplicate := serve(e, http.MethodPost, "/species/1/locations", "{}", headers)
	assert.Equal(t, http.StatusConflict, duplicate.Code)
	assert.Contains(t, duplicate.Body.String(), "still in progress")

	close(release)
	first := <-firstDone
	require.Equal(t, http.StatusOK, first.Code)

	replay := serve(e, http.MethodPost, "/species/1/locations", "{}", headers)
	assert.Equal(t, "true", replay.Header().Get(IdempotentReplayedHeader))
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, int32(1), calls.Load())
}

func TestIdempotencyRunsHandlerOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	store := cache.New(time.Minute, 0)
	var calls atomic.Int32
	e := echo.New()
	e.POST("/x", func(c echo.Context) error {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return c.String(http.StatusCreated, "ok")
	}, NewIdempotency(store, nil))

	headers := map[string]string{IdempotencyKeyHeader: "retry"}
	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = serve(e, http.MethodPost, "/x", "", headers).Code
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, code := range codes {
		assert.Contains(t, []int{http.StatusCreated, http.StatusConflict}, code)
	}
}

func TestIdempotencyReleasesKeyAfterHandlerError(t *testing.T) {
	t.Parallel()

	store := cache.New(time.Minute, 0)
	var calls int
	e := echo.New()
	e.POST("/x", func(c echo.Context) error {
		calls++
		if calls == 1 {
			return echo.NewHTTPError(http.StatusInternalServerError, "boom")
		}
		return c.String(http.StatusOK, "ok")
	}, NewIdempotency(store, nil))

	headers := map[string]string{IdempotencyKeyHeader: "k"}
	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodPost, "/x", "", headers).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/x", "", headers).Code)
	assert.Equal(t, 2, calls)
}

func TestRequestIDPropagatesToContext(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewRequestID())
	e.Use(NewRequestLogger(logger.NewSlogLogger(nil, logger.LogLevelError, time.UTC)))

	var traceID string
	e.GET("/", func(c echo.Context) error {
		traceID = logger.TraceIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	rec := serve(e, http.MethodGet, "/", "", map[string]string{echo.HeaderXRequestID: "req-1"})
	assert.Equal(t, "req-1", traceID)
	assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(e, http.MethodGet, "/", "", nil)
	assert.NotEmpty(t, traceID)
	assert.NotEqual(t, "req-1", traceID)
	assert.Equal(t, traceID, rec.Header().Get(echo.HeaderXRequestID))
}
