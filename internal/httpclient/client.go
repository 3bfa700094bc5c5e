// Package httpclient builds the tuned HTTP clients used for outbound API calls.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default overall request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies outbound requests.
	DefaultUserAgent = "wcmc-survey"

	// Default connection pool settings
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second

	// Default timeouts for various HTTP operations
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultDialTimeout           = 30 * time.Second
	defaultDialKeepAlive         = 30 * time.Second
)

// Config holds configuration for creating an HTTP client.
type Config struct {
	// Timeout bounds a whole request including reading the body
	Timeout time.Duration

	// UserAgent is added to requests that do not set one
	UserAgent string

	// MaxIdleConnsPerHost should cover the caller's request concurrency
	MaxIdleConnsPerHost int
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             DefaultTimeout,
		UserAgent:           DefaultUserAgent,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
	}
}

// New creates an HTTP client. A nil cfg uses DefaultConfig; zero fields take
// their defaults and the caller's config is not modified.
func New(cfg *Config) *http.Client {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.Timeout > 0 {
			c.Timeout = cfg.Timeout
		}
		if cfg.UserAgent != "" {
			c.UserAgent = cfg.UserAgent
		}
		if cfg.MaxIdleConnsPerHost > 0 {
			c.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
		}
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: defaultDialKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
	}

	return &http.Client{
		Transport: &userAgentTransport{base: transport, userAgent: c.UserAgent},
		Timeout:   c.Timeout,
	}
}

// userAgentTransport sets the User-Agent header on requests without one.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}
