package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var statuses []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("expected first two requests allowed, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("expected third request limited, got %v", statuses)
	}
}

func TestRateLimiterKeysCallersSeparately(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, addr := range []string{"10.0.0.1:1234", "10.0.0.2:1234"} {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected %s to have its own bucket, got %d", addr, rec.Code)
		}
	}
}

func TestRateLimiterLifecycle(t *testing.T) {
	rl := NewRateLimiter(10, 10, nil)
	ctx := context.Background()

	if err := rl.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rl.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if err := rl.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := rl.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
