// Package reportclient builds the per-phylum observation report by walking
// the survey HTTP API.
package reportclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/httpclient"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/observability/metrics"
)

const componentReport = "reportclient"

// Defaults used when settings leave a value unset.
const (
	DefaultPageSize    = conf.MaxPageSize
	DefaultConcurrency = 8
	DefaultTimeout     = 30 * time.Second

	// maxErrorBody bounds how much of an error response is kept for the message.
	maxErrorBody = 512
)

// Species is the subset of the species representation the report needs.
type Species struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Kingdom string `json:"kingdom"`
	Phylum  string `json:"phylum"`
}

type speciesPage struct {
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	LastPage int       `json:"last_page"`
	Data     []Species `json:"data"`
}

// Client fetches species and their observation counts from the survey API.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	pageSize    int
	concurrency int
	limiter     *rate.Limiter
	log         logger.Logger
	recorder    metrics.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithPageSize sets the page size requested from /species.
func WithPageSize(size int) Option {
	return func(cl *Client) {
		if size > 0 && size <= conf.MaxPageSize {
			cl.pageSize = size
		}
	}
}

// WithConcurrency bounds the number of location requests in flight.
func WithConcurrency(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.concurrency = n
		}
	}
}

// WithRateLimit caps requests per second. Zero or less disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(cl *Client) {
		if perSecond > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			cl.limiter = nil
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(log logger.Logger) Option {
	return func(cl *Client) {
		if log != nil {
			cl.log = log
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(cl *Client) {
		if r != nil {
			cl.recorder = r
		}
	}
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid base URL %q", baseURL).
			Component(componentReport).
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Client{
		baseURL:     u,
		httpClient:  httpclient.New(&httpclient.Config{Timeout: DefaultTimeout, MaxIdleConnsPerHost: DefaultConcurrency}),
		pageSize:    DefaultPageSize,
		concurrency: DefaultConcurrency,
		log:         logger.Global().Module(componentReport),
		recorder:    metrics.NewNoOpRecorder(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromSettings creates a Client from the report settings. opts are applied
// after the settings.
func NewFromSettings(settings *conf.ReportSettings, opts ...Option) (*Client, error) {
	base := []Option{
		WithPageSize(settings.PageSize),
		WithConcurrency(settings.Concurrency),
		WithRateLimit(settings.RateLimit),
	}
	base = append(base, WithHTTPClient(httpclient.New(&httpclient.Config{
		Timeout:             settings.Timeout,
		MaxIdleConnsPerHost: settings.Concurrency,
	})))
	return New(settings.BaseURL, append(base, opts...)...)
}

// FetchSpecies walks /species from page 0 until the API answers 404.
func (c *Client) FetchSpecies(ctx context.Context) ([]Species, error) {
	var all []Species
	for page := 0; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("page_size", strconv.Itoa(c.pageSize))

		var body speciesPage
		found, err := c.getJSON(ctx, metrics.OpFetchPage, "/species", query, &body)
		if err != nil {
			return nil, err
		}
		if !found {
			c.log.Debug("species pages exhausted", logger.Int("pages", page), logger.Int("species", len(all)))
			return all, nil
		}
		all = append(all, body.Data...)
	}
}

// CountLocations returns the number of distinct locations each species was
// observed at, keyed by species id.
func (c *Client) CountLocations(ctx context.Context, species []Species) (map[int64]int, error) {
	counts := make([]int, len(species))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range species {
		g.Go(func() error {
			var locations []json.RawMessage
			path := fmt.Sprintf("/species/%d/locations", species[i].ID)
			found, err := c.getJSON(gctx, metrics.OpFetchLocations, path, nil, &locations)
			if err != nil {
				return err
			}
			if !found {
				// Deleted between listing and counting.
				c.log.Debug("species vanished during report", logger.Int64("species_id", species[i].ID))
				return nil
			}
			counts[i] = len(locations)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[int64]int, len(species))
	for i, sp := range species {
		result[sp.ID] = counts[i]
	}
	return result, nil
}

// Run fetches everything and summarises it per phylum.
func (c *Client) Run(ctx context.Context) ([]PhylumSummary, error) {
	start := time.Now()
	species, err := c.FetchSpecies(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := c.CountLocations(ctx, species)
	if err != nil {
		return nil, err
	}
	summary := Summarize(species, counts)

	c.log.Info("report complete",
		logger.Int("species", len(species)),
		logger.Int("phyla", len(summary)),
		logger.Duration("duration", time.Since(start)))
	return summary, nil
}

// getJSON decodes a 200 response into out. A 404 reports found=false.
func (c *Client) getJSON(ctx context.Context, operation, path string, query url.Values, out any) (found bool, err error) {
	start := time.Now()
	defer func() {
		c.recorder.RecordDuration(operation, time.Since(start).Seconds())
		if err != nil {
			c.recorder.RecordOperation(operation, metrics.StatusError)
			c.recorder.RecordError(operation, string(errors.CategoryFor(err)))
			return
		}
		c.recorder.RecordOperation(operation, metrics.StatusSuccess)
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, requestError(err, errors.CategoryCancellation, path)
		}
	}

	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return false, requestError(err, errors.CategoryHTTP, path)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, requestError(err, errors.CategoryNetwork, path)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return false, errors.Newf("GET %s: unexpected status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet))).
			Component(componentReport).
			Category(errors.CategoryHTTP).
			Context("status", resp.StatusCode).
			Context("path", path).
			Build()
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, requestError(fmt.Errorf("decode response: %w", err), errors.CategoryHTTP, path)
	}
	return true, nil
}

func requestError(err error, category errors.ErrorCategory, path string) error {
	return errors.New(fmt.Errorf("GET %s: %w", path, err)).
		Component(componentReport).
		Category(category).
		Context("path", path).
		Build()
}
