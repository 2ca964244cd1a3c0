package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 1; i <= 3; i++ {
		if !rl.Allow("user:1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("user:1") {
		t.Fatal("4th request in the window should be rejected")
	}
	if !rl.Allow("user:2") {
		t.Fatal("other callers have their own window")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("user:1") {
		t.Fatal("a new window should reset the count")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	rl, now := newTestLimiter(t, 10)
	rl.Allow("user:1")
	*now = now.Add(90 * time.Second)
	rl.Allow("user:2")

	*now = now.Add(45 * time.Second)
	rl.cleanupStaleEntries()
	if got := rl.ActiveClients(); got != 1 {
		t.Fatalf("ActiveClients() = %d, want 1", got)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	handler := rl.Middleware(func(r *http.Request) string {
		return r.Header.Get("X-User-ID")
	}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		user   string
		status int
	}{
		{"first request", "1", http.StatusNoContent},
		{"over limit", "1", http.StatusTooManyRequests},
		{"different user", "2", http.StatusNoContent},
		{"anonymous is not limited", "", http.StatusNoContent},
		{"anonymous again", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/projection", nil)
			if tt.user != "" {
				req.Header.Set("X-User-ID", tt.user)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
				t.Error("Retry-After header missing")
			}
		})
	}
}
