package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// HTTPRecorder receives per-request measurements.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int, duration float64)
	RecordHTTPRequestError(method, path, errorType string)
	RecordHTTPResponseSize(method, path string, sizeBytes int64)
}

// NewMetrics records request count, latency and response size per route template.
// Unmatched routes are reported under "unmatched" to bound label cardinality.
func NewMetrics(recorder HTTPRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if recorder == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			status := responseStatus(c, err)

			recorder.RecordHTTPRequest(method, path, status, time.Since(start).Seconds())
			recorder.RecordHTTPResponseSize(method, path, c.Response().Size)
			if status >= http.StatusInternalServerError {
				recorder.RecordHTTPRequestError(method, path, strconv.Itoa(status))
			}
			return err
		}
	}
}

// responseStatus returns the status that was or will be written for the request.
func responseStatus(c echo.Context, err error) int {
	if err != nil && !c.Response().Committed {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr.Code
		}
		return http.StatusInternalServerError
	}
	if status := c.Response().Status; status != 0 {
		return status
	}
	return http.StatusOK
}
