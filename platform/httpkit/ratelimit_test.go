package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestRateLimitRejectsOverBudget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 2, nil)
	r := gin.New()
	r.GET("/ping", limiter.RateLimit(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		codes = append(codes, serve(r, req).Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}

	other := httptest.NewRequest(http.MethodGet, "/ping", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	if code := serve(r, other).Code; code != http.StatusNoContent {
		t.Fatalf("second client should have its own bucket, got %d", code)
	}
}

func TestIdleVisitorsAreSwept(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(rate.Limit(1), 1, nil)
	limiter.now = func() time.Time { return now }

	limiter.allow("10.0.0.1")
	now = now.Add(limiterIdleTTL / 2)
	limiter.allow("10.0.0.2")
	if got := limiter.size(); got != 2 {
		t.Fatalf("expected 2 visitors, got %d", got)
	}

	now = now.Add(limiterIdleTTL)
	limiter.allow("10.0.0.3")
	if got := limiter.size(); got != 1 {
		t.Fatalf("expected idle visitors to be dropped, got %d", got)
	}
}
