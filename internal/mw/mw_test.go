package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func get(r *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping", "").Code)
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret := "s3cret"
	r := gin.New()
	r.Use(RequireAuth(secret))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserIDKey))
	})

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer junk").Code)

	// A token without a subject is useless to the handlers below.
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{}).
		SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer "+noSub).Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).
		SignedString([]byte(secret))
	require.NoError(t, err)
	w := get(r, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
}

func TestCacheServesRepeatedGets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hits := 0
	r := gin.New()
	r.GET("/doc", Cache(cache.New(time.Minute, time.Minute), time.Minute), func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"hits": hits})
	})

	first := get(r, "/doc", "")
	require.Equal(t, http.StatusOK, first.Code)
	second := get(r, "/doc", "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, hits)
}

func TestCacheSkipsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hits := 0
	r := gin.New()
	r.GET("/flaky", Cache(cache.New(time.Minute, time.Minute), time.Minute), func(c *gin.Context) {
		hits++
		if hits == 1 {
			c.Status(http.StatusBadGateway)
			return
		}
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusBadGateway, get(r, "/flaky", "").Code)
	// The failure was not cached; the next request reaches the handler.
	assert.Equal(t, http.StatusOK, get(r, "/flaky", "").Code)
	assert.Equal(t, 2, hits)
}
