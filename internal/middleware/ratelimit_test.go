package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func rateLimitedHandler(rl *RateLimiter) http.Handler {
	return rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func requestAs(handler http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/glucoses/", nil)
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Limit(0.001), Burst: 3})
	defer rl.Stop()
	handler := rateLimitedHandler(rl)

	for i := 0; i < 3; i++ {
		if w := requestAs(handler, "user-1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimiter_ExceedsBurst_Returns429(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Limit(0.5), Burst: 1})
	defer rl.Stop()
	handler := rateLimitedHandler(rl)

	requestAs(handler, "user-1")
	w := requestAs(handler, "user-1")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want %q", got, "2")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != "RATE_LIMITED" {
		t.Errorf("code = %q, want %q", body.Code, "RATE_LIMITED")
	}
}

func TestRateLimiter_PerUserIsolation(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Limit(0.001), Burst: 1})
	defer rl.Stop()
	handler := rateLimitedHandler(rl)

	requestAs(handler, "user-1")
	if w := requestAs(handler, "user-1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("user-1 second request: status = %d, want 429", w.Code)
	}
	if w := requestAs(handler, "user-2"); w.Code != http.StatusOK {
		t.Errorf("user-2 first request: status = %d, want 200", w.Code)
	}
	if rl.LimiterCount() != 2 {
		t.Errorf("LimiterCount = %d, want 2", rl.LimiterCount())
	}
}

func TestRateLimiter_NoUser_Returns401(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	defer rl.Stop()

	if w := requestAs(rateLimitedHandler(rl), ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	rl.limiterFor("idle")
	rl.limiterFor("active")
	rl.mu.Lock()
	rl.limiters["idle"].lastAccess = time.Now().Add(-3 * time.Minute)
	rl.mu.Unlock()

	rl.cleanup(time.Now())

	if rl.LimiterCount() != 1 {
		t.Fatalf("LimiterCount = %d, want 1", rl.LimiterCount())
	}
	rl.mu.Lock()
	_, ok := rl.limiters["active"]
	rl.mu.Unlock()
	if !ok {
		t.Error("active entry should be kept")
	}
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

func TestRateLimiterConfigPerMinute(t *testing.T) {
	tests := []struct {
		name      string
		perMinute int
		wantBurst int
		wantRate  rate.Limit
	}{
		{name: "既定値120", perMinute: 120, wantBurst: 120, wantRate: 2},
		{name: "60", perMinute: 60, wantBurst: 60, wantRate: 1},
		{name: "0は1に補正", perMinute: 0, wantBurst: 1, wantRate: rate.Limit(1.0 / 60.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := RateLimiterConfigPerMinute(tt.perMinute)
			if cfg.Burst != tt.wantBurst {
				t.Errorf("Burst = %d, want %d", cfg.Burst, tt.wantBurst)
			}
			if cfg.Rate != tt.wantRate {
				t.Errorf("Rate = %v, want %v", cfg.Rate, tt.wantRate)
			}
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		r    rate.Limit
		want int
	}{
		{r: 2, want: 1},
		{r: 0.5, want: 2},
		{r: rate.Limit(1.0 / 60.0), want: 60},
		{r: 0, want: 60},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.r); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.r, got, tt.want)
		}
	}
}
