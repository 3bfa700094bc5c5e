package middleware

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
)

// IdempotentReplayedHeader is set on responses served from the replay cache.
const IdempotentReplayedHeader = "Idempotent-Replayed"

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

// bodyRecorder tees the response body so it can be stored for replay.
type bodyRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// inFlight reserves a key while its first request is being handled.
type inFlight struct{}

// conflictResponse mirrors the API error body.
type conflictResponse struct {
	Detail        string `json:"detail"`
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewIdempotency replays the first successful response to a POST carrying an
// Idempotency-Key header for as long as store keeps it. Keys are scoped to the
// request path. The key is reserved before the handler runs: a duplicate that
// arrives meanwhile gets 409, and the reservation is released when the
// handler does not succeed. onReplay, when set, is called for every replayed
// response.
func NewIdempotency(store *cache.Cache, onReplay func()) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			key := req.Header.Get(IdempotencyKeyHeader)
			if key == "" || req.Method != http.MethodPost || store == nil {
				return next(c)
			}

			cacheKey := req.URL.Path + "\x00" + key
			for store.Add(cacheKey, inFlight{}, cache.DefaultExpiration) != nil {
				v, found := store.Get(cacheKey)
				if !found {
					// Released between Add and Get; try to reserve again.
					continue
				}
				cached, ok := v.(*cachedResponse)
				if !ok {
					return c.JSON(http.StatusConflict, &conflictResponse{
						Detail:        "A request with this Idempotency-Key is still in progress",
						Error:         "conflict",
						CorrelationID: c.Response().Header().Get(echo.HeaderXRequestID),
					})
				}
				if onReplay != nil {
					onReplay()
				}
				c.Response().Header().Set(IdempotentReplayedHeader, "true")
				return c.Blob(cached.status, cached.contentType, cached.body)
			}

			stored := false
			defer func() {
				if !stored {
					store.Delete(cacheKey)
				}
			}()

			res := c.Response()
			rec := &bodyRecorder{ResponseWriter: res.Writer}
			res.Writer = rec
			defer func() { res.Writer = rec.ResponseWriter }()

			if err := next(c); err != nil {
				return err
			}

			if res.Status >= http.StatusOK && res.Status < http.StatusMultipleChoices {
				store.SetDefault(cacheKey, &cachedResponse{
					status:      res.Status,
					contentType: res.Header().Get(echo.HeaderContentType),
					body:        bytes.Clone(rec.body.Bytes()),
				})
				stored = true
			}
			return nil
		}
	}
}
