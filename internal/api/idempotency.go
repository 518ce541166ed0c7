package api

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const idempotencyHeader = "Idempotency-Key"

// cachedResponse with a zero status marks a key whose first request is still running.
type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

// idempotencyCache replays the first successful response for a repeated
// Idempotency-Key so a retried create does not book twice. A key is reserved
// before the handler runs; a concurrent duplicate gets 409 until it resolves.
type idempotencyCache struct {
	cache *cache.Cache
}

func newIdempotencyCache(ttl time.Duration) *idempotencyCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &idempotencyCache{cache: cache.New(ttl, ttl/2)}
}

func (c *idempotencyCache) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		if key == "" {
			next(w, r)
			return
		}
		actor, _ := ActorFrom(r.Context())
		cacheKey := actor.ID + "|" + r.Method + "|" + r.URL.Path + "|" + key

		if err := c.cache.Add(cacheKey, cachedResponse{}, cache.DefaultExpiration); err != nil {
			v, ok := c.cache.Get(cacheKey)
			if !ok {
				writeError(w, http.StatusConflict, "idempotency_key_in_use", "retry the request")
				return
			}
			resp := v.(cachedResponse)
			if resp.status == 0 {
				writeError(w, http.StatusConflict, "idempotency_key_in_use", "a request with this key is in progress")
				return
			}
			w.Header().Set("Content-Type", resp.contentType)
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(resp.status)
			_, _ = w.Write(resp.body)
			return
		}

		rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
		stored := false
		defer func() {
			if !stored {
				c.cache.Delete(cacheKey)
			}
		}()
		next(rec, r)

		if rec.status < 300 {
			c.cache.SetDefault(cacheKey, cachedResponse{
				status:      rec.status,
				contentType: rec.Header().Get("Content-Type"),
				body:        rec.buf.Bytes(),
			})
			stored = true
		}
	}
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *bodyRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *bodyRecorder) Write(p []byte) (int, error) {
	r.buf.Write(p)
	return r.ResponseWriter.Write(p)
}
