package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	router := newRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitIsPerAddress(t *testing.T) {
	router := newRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	first := httptest.NewRecorder()
	reqA := httptest.NewRequest("GET", "/health", nil)
	reqA.RemoteAddr = "203.0.113.7:1234"
	router.ServeHTTP(first, reqA)
	require.Equal(t, http.StatusOK, first.Code)

	exhausted := httptest.NewRecorder()
	router.ServeHTTP(exhausted, reqA)
	require.Equal(t, http.StatusTooManyRequests, exhausted.Code)

	// A different address has its own bucket.
	other := httptest.NewRecorder()
	reqB := httptest.NewRequest("GET", "/health", nil)
	reqB.RemoteAddr = "203.0.113.8:1234"
	router.ServeHTTP(other, reqB)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestLimiterPoolPrunesIdleClients(t *testing.T) {
	pool := newLimiterPool(RateLimitConfig{RequestsPerSecond: 10, Burst: 10})

	pool.get("203.0.113.7")
	pool.get("203.0.113.8")
	require.Equal(t, 2, pool.size())

	// Age one entry past the idle cutoff.
	pool.mu.Lock()
	pool.clients["203.0.113.7"].lastSeen = time.Now().Add(-10 * time.Minute)
	pool.mu.Unlock()

	removed := pool.prune(limiterMaxIdle)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, pool.size())

	// The surviving, recently seen entry stays.
	pool.get("203.0.113.8")
	assert.Equal(t, 0, pool.prune(limiterMaxIdle))
}

func TestCORSPreflight(t *testing.T) {
	router := newRouter(CORS(DefaultCORSConfig()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/health", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSExposesTraceHeaders(t *testing.T) {
	router := newRouter(CORS(DefaultCORSConfig()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://example.test")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Trace-ID")
}
