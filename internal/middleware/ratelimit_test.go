package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/microbes-potential/conatoc-net/internal/middleware"
)

func newLimitedRouter(limiter *middleware.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limiter.Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(router *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterThrottlesBursts(t *testing.T) {
	// 60 rpm gives a burst of 6 tokens refilled at one per second.
	router := newLimitedRouter(middleware.NewRateLimiter(60))

	var limited bool
	for i := 0; i < 20; i++ {
		if get(router, "10.0.0.1") == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	require.True(t, limited)

	// A different client has its own bucket.
	require.Equal(t, http.StatusOK, get(router, "10.0.0.2"))
}

func TestRateLimiterDisabled(t *testing.T) {
	router := newLimitedRouter(middleware.NewRateLimiter(0))
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, get(router, "10.0.0.1"))
	}
}
