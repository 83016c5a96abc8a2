package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimit_Disabled(t *testing.T) {
	handler := RateLimitMiddleware(0, 0)(okHandler())
	for i := 0; i < 50; i++ {
		if rr := doAuth(handler, "/lots/nearby", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, rr.Code)
		}
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	handler := RateLimitMiddleware(0.001, 2)(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest("GET", "/lots/nearby", http.NoBody)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("burst request %d: got %d", i, code)
		}
	}
	if code := send("10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Errorf("over burst: got %d, want %d", code, http.StatusTooManyRequests)
	}
	if code := send("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("other client: got %d, want %d", code, http.StatusOK)
	}
}

func TestRateLimit_KeyedBySubject(t *testing.T) {
	handler := RateLimitMiddleware(0.001, 1)(okHandler())

	send := func(subject string) int {
		req := httptest.NewRequest("GET", "/lots/nearby", http.NoBody)
		req = req.WithContext(ContextWithPrincipal(req.Context(), Principal{Subject: subject, Role: RoleProducer}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("p-1"); code != http.StatusOK {
		t.Fatalf("first: got %d", code)
	}
	if code := send("p-1"); code != http.StatusTooManyRequests {
		t.Errorf("second: got %d, want 429", code)
	}
	if code := send("p-2"); code != http.StatusOK {
		t.Errorf("other subject: got %d", code)
	}
}

func TestRateLimit_ExemptPaths(t *testing.T) {
	handler := RateLimitMiddleware(0.001, 1)(okHandler())
	for i := 0; i < 5; i++ {
		if rr := doAuth(handler, "/health", ""); rr.Code != http.StatusOK {
			t.Fatalf("health %d: got %d", i, rr.Code)
		}
	}
}

func TestClientLimiters_SweepsIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := &clientLimiters{limit: 1, burst: 1, clients: map[string]*clientLimiter{}, now: func() time.Time { return now }}

	l.allow("a")
	now = now.Add(2 * limiterIdleTTL)
	l.allow("b")

	if _, ok := l.clients["a"]; ok {
		t.Error("idle client not swept")
	}
	if _, ok := l.clients["b"]; !ok {
		t.Error("active client swept")
	}
}
