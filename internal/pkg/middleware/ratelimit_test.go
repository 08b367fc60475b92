package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ricesearch/rice-accesslog/internal/accesslog"
)

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.RequestsPerSecond != 100 {
		t.Errorf("expected RequestsPerSecond=100, got %f", cfg.RequestsPerSecond)
	}
	if cfg.Burst != 200 {
		t.Errorf("expected Burst=200, got %d", cfg.Burst)
	}
	if cfg.CleanupInterval != time.Minute {
		t.Errorf("expected CleanupInterval=1m, got %v", cfg.CleanupInterval)
	}
	if cfg.IdleTimeout != 5*time.Minute {
		t.Errorf("expected IdleTimeout=5m, got %v", cfg.IdleTimeout)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             2,
	})
	defer rl.Stop()

	clientIP := "192.168.1.100"

	// First 2 requests should be allowed (burst)
	if !rl.Allow(clientIP) {
		t.Error("expected first request to be allowed")
	}
	if !rl.Allow(clientIP) {
		t.Error("expected second request to be allowed")
	}

	// Third request should be denied (burst exhausted)
	if rl.Allow(clientIP) {
		t.Error("expected third request to be denied")
	}

	// Wait for rate limit to refill
	time.Sleep(600 * time.Millisecond)

	if !rl.Allow(clientIP) {
		t.Error("expected request to be allowed after waiting")
	}
}

func TestRateLimiter_MultipleClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 5,
		Burst:             5,
	})
	defer rl.Stop()

	client1 := "192.168.1.100"
	client2 := "192.168.1.101"

	// Both clients should have independent limits
	for i := 0; i < 5; i++ {
		if !rl.Allow(client1) {
			t.Errorf("client1 request %d should be allowed", i)
		}
		if !rl.Allow(client2) {
			t.Errorf("client2 request %d should be allowed", i)
		}
	}

	if rl.Allow(client1) {
		t.Error("client1 should be rate limited")
	}
	if rl.Allow(client2) {
		t.Error("client2 should be rate limited")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 100,
		Burst:             100,
	})
	defer rl.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(clientNum int) {
			defer wg.Done()
			clientIP := "192.168.1." + string(rune('0'+clientNum))
			for j := 0; j < 10; j++ {
				rl.Allow(clientIP)
			}
		}(i)
	}
	wg.Wait()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.clients) != 10 {
		t.Errorf("expected 10 clients, got %d", len(rl.clients))
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 100,
		Burst:             100,
		IdleTimeout:       time.Minute,
	})
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		rl.Allow("192.168.1." + string(rune('0'+i)))
	}

	// Not idle long enough
	rl.evictIdle(time.Now())
	rl.mu.Lock()
	count := len(rl.clients)
	rl.mu.Unlock()
	if count != 5 {
		t.Errorf("expected 5 clients, got %d", count)
	}

	rl.evictIdle(time.Now().Add(2 * time.Minute))
	rl.mu.Lock()
	count = len(rl.clients)
	rl.mu.Unlock()
	if count != 0 {
		t.Errorf("expected idle clients to be evicted, got %d", count)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             2,
	})
	defer rl.Stop()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var buf bytes.Buffer
	al := NewAccessLogger(AccessLoggerConfig{Writer: accesslog.NewWriter(&buf)})
	chain := al.Middleware(rl.Middleware(handler))

	// First 2 requests should pass
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		w := httptest.NewRecorder()

		chain.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("request %d: expected status 200, got %d", i, w.Code)
		}
	}

	// Third request should be rate limited
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	w := httptest.NewRecorder()

	chain.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After header, got %q", w.Header().Get("Retry-After"))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 access log lines, got %d", len(lines))
	}
	last := lines[2]
	if !strings.Contains(last, `"code":429`) || !strings.Contains(last, `"ratelimited":"true"`) {
		t.Errorf("rate limited request not marked in access log: %s", last)
	}
}
