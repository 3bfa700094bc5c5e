package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.UserAgent())
	}))
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, client *http.Client, req *http.Request) string {
	t.Helper()
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestUserAgentInjection(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	tests := []struct {
		name   string
		cfg    *Config
		header string
		want   string
	}{
		{name: "default", cfg: nil, want: DefaultUserAgent},
		{name: "configured", cfg: &Config{UserAgent: "wcmc-survey-report/1.0"}, want: "wcmc-survey-report/1.0"},
		{name: "request header wins", cfg: nil, header: "custom/2.0", want: "custom/2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, err := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("User-Agent", tt.header)
			}
			assert.Equal(t, tt.want, get(t, New(tt.cfg), req))
			if tt.header == "" {
				assert.Empty(t, req.Header.Get("User-Agent"), "caller's request is not modified")
			}
		})
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{Timeout: 5 * time.Second}
	client := New(cfg)
	assert.Equal(t, 5*time.Second, client.Timeout)
	assert.Empty(t, cfg.UserAgent, "config is not mutated")

	transport := client.Transport.(*userAgentTransport)
	assert.Equal(t, DefaultUserAgent, transport.userAgent)
	assert.Equal(t, defaultMaxIdleConnsPerHost, transport.base.(*http.Transport).MaxIdleConnsPerHost)

	assert.Equal(t, DefaultTimeout, New(nil).Timeout)
}
