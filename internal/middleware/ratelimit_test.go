package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newLimitedHandler(t *testing.T, mr *miniredis.Miniredis, limit int) http.Handler {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	config := RateLimitConfig{
		RequestsPerWindow: limit,
		Window:            time.Minute,
		KeyPrefix:         "rate_limit:test",
	}
	return RateLimitMiddleware(rdb, config, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

// Within one window exactly `limit` requests pass and the rest get 429.
func TestProperty_RateLimitAllowsExactlyTheLimit(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("limit passes, excess is blocked", prop.ForAll(
		func(limit, excess int) bool {
			mr := miniredis.RunT(t)
			handler := newLimitedHandler(t, mr, limit)

			passed, blocked := 0, 0
			for i := 0; i < limit+excess; i++ {
				req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
				req.RemoteAddr = "192.0.2.10:41000"
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)

				switch w.Code {
				case http.StatusOK:
					passed++
				case http.StatusTooManyRequests:
					blocked++
				}
			}

			return passed == limit && blocked == excess
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

func TestRateLimit_HeadersAndKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	handler := newLimitedHandler(t, mr, 2)

	send := func(remoteAddr string, userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remoteAddr
		if userID > 0 {
			req = req.WithContext(WithIdentity(req.Context(), userID, "buyer"))
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	first := send("198.51.100.1:1000", 0)
	if first.Header().Get("X-RateLimit-Remaining") != "1" || first.Header().Get("X-RateLimit-Limit") != "2" {
		t.Fatalf("unexpected headers %v", first.Header())
	}

	// Ports differ between connections; the limit is per address.
	send("198.51.100.1:2000", 0)
	blocked := send("198.51.100.1:3000", 0)
	if blocked.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", blocked.Code)
	}
	retry, err := strconv.Atoi(blocked.Header().Get("Retry-After"))
	if err != nil || retry <= 0 || retry > 60 {
		t.Fatalf("unexpected Retry-After %q", blocked.Header().Get("Retry-After"))
	}

	if w := send("198.51.100.1:4000", 42); w.Code != http.StatusOK {
		t.Fatalf("authenticated users are limited by id, got %d", w.Code)
	}
	if !mr.Exists("rate_limit:test:user:42") || !mr.Exists("rate_limit:test:ip:198.51.100.1") {
		t.Fatalf("unexpected keys %v", mr.Keys())
	}

	mr.FastForward(time.Minute)
	if w := send("198.51.100.1:5000", 0); w.Code != http.StatusOK {
		t.Fatalf("expected a new window after expiry, got %d", w.Code)
	}
}

func TestRateLimit_FailsOpenWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	handler := newLimitedHandler(t, mr, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected requests to pass while redis is down, got %d", w.Code)
		}
	}
}
