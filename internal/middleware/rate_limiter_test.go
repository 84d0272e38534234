package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Ventana(t *testing.T) {
	l := newRateLimiter(2, time.Minute)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	ok, _ := l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, end := l.allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, base.Add(time.Minute), end)

	ok, _ = l.allow("10.0.0.2")
	assert.True(t, ok, "limits are per key")

	l.now = func() time.Time { return base.Add(time.Minute + time.Second) }
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok, "new window")
}

func TestRateLimiter_Purge(t *testing.T) {
	l := newRateLimiter(5, time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }
	l.allow("a")
	l.allow("b")

	assert.Zero(t, l.purge())
	l.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.Equal(t, 2, l.purge())
	assert.Empty(t, l.entries)
}

func TestRateLimiter_Middleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(RateLimiter(ctx, 1, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w
	}
	assert.Equal(t, http.StatusNoContent, hit().Code)
	w := hit()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
}
