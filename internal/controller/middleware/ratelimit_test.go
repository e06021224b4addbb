package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// slugRoutes registers the limited handler the way the controller does, so that
// PathValue sees the matched slug.
func slugRoutes(l *RateLimiter) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /explorers/{slug}/publish", l.Middleware(PathValue("slug"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	return mux
}

func publishReq(h http.Handler, slug string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/explorers/"+slug+"/publish", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitMiddleware_AllowsRequestUnderLimit(t *testing.T) {
	h := slugRoutes(NewRateLimiter(100, 200))

	for i := 0; i < 10; i++ {
		if rr := publishReq(h, "co2"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d, want %d", i, rr.Code, http.StatusOK)
		}
	}
}

func TestRateLimitMiddleware_RejectsRequestOverLimit(t *testing.T) {
	h := slugRoutes(NewRateLimiter(1, 1))

	// First request should succeed (uses the burst)
	if rr := publishReq(h, "co2"); rr.Code != http.StatusOK {
		t.Errorf("first request: got status %d, want %d", rr.Code, http.StatusOK)
	}

	// Second request should be rate limited (burst exhausted)
	rr := publishReq(h, "co2")
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("second request: got status %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if got := rr.Header().Get("Retry-After"); got != "1" {
		t.Errorf("got Retry-After %q, want %q", got, "1")
	}
}

func TestRateLimitMiddleware_IndependentLimitsPerSlug(t *testing.T) {
	h := slugRoutes(NewRateLimiter(1, 1))

	publishReq(h, "co2")
	if rr := publishReq(h, "co2"); rr.Code != http.StatusTooManyRequests {
		t.Errorf("co2: got status %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if rr := publishReq(h, "energy"); rr.Code != http.StatusOK {
		t.Errorf("energy: got status %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimitMiddleware_ZeroLimitIsUnlimited(t *testing.T) {
	h := slugRoutes(NewRateLimiter(0, 0))

	for i := 0; i < 50; i++ {
		if rr := publishReq(h, "co2"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d, want %d", i, rr.Code, http.StatusOK)
		}
	}
}

func TestRateLimitMiddleware_ExpiredBucketIsReplaced(t *testing.T) {
	l := NewRateLimiter(1, 1, WithTTL(time.Nanosecond))
	h := slugRoutes(l)

	publishReq(h, "co2")
	time.Sleep(time.Millisecond)
	if rr := publishReq(h, "co2"); rr.Code != http.StatusOK {
		t.Errorf("got status %d after TTL expiry, want %d", rr.Code, http.StatusOK)
	}
}
