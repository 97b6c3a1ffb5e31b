package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status int
	header http.Header
	body   []byte
}

// captureWriter tees the response body so successful responses can be
// replayed from the cache.
type captureWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves repeated GET requests from an in-memory cache for the
// given TTL. Vendor status and balance lookups are slow and billed, so
// even a short TTL takes real pressure off the upstream.
//
// Responses for authenticated routes are keyed by user, so the auth
// middleware must run first.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if userID := c.GetString(UserIDKey); userID != "" {
			key = userID + "\x00" + key
		}

		if hit, found := store.Get(key); found {
			resp := hit.(cachedResponse)
			for k, v := range resp.header {
				c.Writer.Header()[k] = v
			}
			c.Writer.WriteHeader(resp.status)
			c.Writer.Write(resp.body)
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer, buf: bytes.NewBuffer(nil)}
		c.Writer = cw
		c.Next()

		if cw.Status() >= 200 && cw.Status() < 300 {
			store.Set(key, cachedResponse{
				status: cw.Status(),
				header: cw.Header().Clone(),
				body:   cw.buf.Bytes(),
			}, ttl)
		}
	}
}
