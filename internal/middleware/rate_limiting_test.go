package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/healthtracker/internal/observability"
)

type stubLimiter struct {
	allowed int
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	s.keys = append(s.keys, key)
	if s.err != nil {
		return nil, s.err
	}
	return &redis_rate.Result{Limit: limit, Allowed: s.allowed, RetryAfter: 30 * time.Second}, nil
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("allowed", func(t *testing.T) {
		limiter := &stubLimiter{allowed: 1}
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.7:5555"

		RateLimit(limiter, nil, "auth", 20, nil)(ok).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, []string{"auth:10.0.0.7"}, limiter.keys)
	})

	t.Run("rejected", func(t *testing.T) {
		metricsManager := observability.NewTestManager()
		limiter := &stubLimiter{allowed: 0}
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.4")
		clients, err := NewClientResolver([]string{"10.0.0.0/8"})
		require.NoError(t, err)

		RateLimit(limiter, clients, "auth", 20, metricsManager)(ok).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "30", rr.Header().Get("Retry-After"))
		assert.Equal(t, []string{"auth:198.51.100.4"}, limiter.keys)
		assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterRateLimited))
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		limiter := &stubLimiter{err: errors.New("redis down")}
		rr := httptest.NewRecorder()

		RateLimit(limiter, nil, "auth", 20, nil)(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

// countingLimiter allows the first `limit` calls per key.
type countingLimiter struct {
	limit int
	seen  map[string]int
}

func (c *countingLimiter) Allow(_ context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	c.seen[key]++
	allowed := 0
	if c.seen[key] <= c.limit {
		allowed = 1
	}
	return &redis_rate.Result{Limit: limit, Allowed: allowed, RetryAfter: time.Minute}, nil
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	limiter := &countingLimiter{limit: 2, seen: map[string]int{}}
	handler := RateLimit(limiter, nil, "auth", 2, nil)(ok)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.10:" + strconv.Itoa(40000+i)
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i+1))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
	assert.Equal(t, map[string]int{"auth:192.0.2.10": 4}, limiter.seen)
}

func TestClientResolverAddress(t *testing.T) {
	clients, err := NewClientResolver([]string{"10.0.0.0/8", "::1"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  []string
		want       string
	}{
		{name: "untrusted peer ignores header", remoteAddr: "198.51.100.7:1234", forwarded: []string{"203.0.113.1"}, want: "198.51.100.7"},
		{name: "trusted peer uses nearest untrusted hop", remoteAddr: "10.1.2.3:80", forwarded: []string{"203.0.113.1, 198.51.100.2, 10.9.9.9"}, want: "198.51.100.2"},
		{name: "repeated headers are one chain", remoteAddr: "[::1]:80", forwarded: []string{"203.0.113.1", "198.51.100.2"}, want: "198.51.100.2"},
		{name: "garbage hop stops at last verified", remoteAddr: "10.1.2.3:80", forwarded: []string{"not-an-ip"}, want: "10.1.2.3"},
		{name: "trusted peer without header", remoteAddr: "10.1.2.3:80", want: "10.1.2.3"},
		{name: "no port", remoteAddr: "198.51.100.7", want: "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			req.RemoteAddr = tt.remoteAddr
			for _, v := range tt.forwarded {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, clients.Address(req))
		})
	}

	_, err = NewClientResolver([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = NewClientResolver([]string{"proxy.internal"})
	assert.Error(t, err)
}
