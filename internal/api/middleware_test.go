package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/solacewellness/solace/internal/auth"
	"github.com/solacewellness/solace/internal/redis"
)

func testRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("failed to parse miniredis port: %v", err)
	}

	client, err := redis.New(context.Background(), redis.Config{
		Host: mr.Host(),
		Port: port,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to connect to miniredis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestRateLimitMiddlewareBurst(t *testing.T) {
	client, _ := testRedisClient(t)
	limiter := redis.NewRateLimiter(client, zap.NewNop())

	handler := RateLimitMiddleware(limiter, redis.FormSubmissionLimit, "form", zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		}),
	)

	// Five calls pass, the sixth is rejected with the retry envelope.
	for i := 1; i <= 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(5-i) {
			t.Errorf("call %d: expected remaining %d, got %s", i, 5-i, got)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on sixth call, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	var resp rateLimitResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != "Too many requests" {
		t.Errorf("expected rate limit error, got %q", resp.Error)
	}
	if resp.RetryAfter <= 0 {
		t.Errorf("expected positive retryAfter, got %d", resp.RetryAfter)
	}

	// A different client is unaffected.
	req = httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for different client, got %d", rec.Code)
	}
}

func TestRateLimitMiddlewareFreshWindow(t *testing.T) {
	client, mr := testRedisClient(t)
	limiter := redis.NewRateLimiter(client, zap.NewNop())

	handler := RateLimitMiddleware(limiter, redis.FormSubmissionLimit, "form", zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	call := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 5; i++ {
		call()
	}
	if code := call(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}

	mr.FastForward(15*time.Minute + time.Second)

	if code := call(); code != http.StatusOK {
		t.Errorf("expected 200 after window expiry, got %d", code)
	}
}

func TestRateLimitMiddlewareNilLimiter(t *testing.T) {
	handler := RateLimitMiddleware(nil, redis.FormSubmissionLimit, "form", zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected pass-through without limiter, got %d", rec.Code)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := auth.NewService("test-session-secret")

	handler := RequireAdmin(svc, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := SessionFromContext(r.Context())
			if claims == nil {
				t.Error("expected claims in context")
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}),
	)

	// No cookie.
	req := httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", rec.Code)
	}

	// Garbage cookie.
	req = httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: "garbage"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with invalid session, got %d", rec.Code)
	}

	// Valid session.
	token, err := svc.IssueToken("user-1", "admin@solaceretreat.com", "admin", time.Now())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid session, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "socket address only",
			remoteAddr: "203.0.113.9:4000",
			expected:   "203.0.113.9",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			expected:   "203.0.113.9",
		},
		{
			name:       "x-forwarded-for chain takes first hop",
			remoteAddr: "10.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2, 10.0.0.3"},
			expected:   "203.0.113.9",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:4000",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			expected:   "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func newDedupHandler(t *testing.T, store *mockStore, fanout *mockFanOut) *Handler {
	t.Helper()

	client, _ := testRedisClient(t)
	return NewHandler(HandlerConfig{
		Submissions:       store,
		Newsletter:        store,
		Notifications:     store,
		Users:             store,
		FanOut:            fanout,
		Auth:              auth.NewService("test-session-secret"),
		Dedup:             redis.NewDedupService(client, zap.NewNop()),
		UnsubscribeSecret: "test-unsubscribe-secret",
		BaseURL:           "https://solaceretreat.com",
	}, zap.NewNop())
}

func TestSubmitContactDedupReplay(t *testing.T) {
	store := newMockStore()
	fanout := &mockFanOut{}
	h := newDedupHandler(t, store, fanout)

	body, _ := json.Marshal(contactRequest{
		Name:    "Jordan",
		Email:   "jordan@example.com",
		Message: "Hello",
	})

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "key-abc")
		rec := httptest.NewRecorder()
		h.SubmitContact(rec, req)
		return rec
	}

	rec := post()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var first submissionResponse
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	// The retry replays the recorded outcome without a second insert.
	rec = post()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
	if rec.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("expected replay header")
	}
	var second submissionResponse
	if err := json.NewDecoder(rec.Body).Decode(&second); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected replayed id %s, got %s", first.ID, second.ID)
	}
	if len(store.contacts) != 1 {
		t.Errorf("expected 1 stored contact, got %d", len(store.contacts))
	}
	if len(fanout.submissions) != 1 {
		t.Errorf("expected 1 fan-out dispatch, got %d", len(fanout.submissions))
	}
}

func TestSubmitWaitlistDedupReplayKeepsPosition(t *testing.T) {
	store := newMockStore()
	h := newDedupHandler(t, store, &mockFanOut{})

	body, _ := json.Marshal(waitlistRequest{
		Name:  "Maya",
		Email: "maya@example.com",
	})

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/waitlist", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "key-wl")
		rec := httptest.NewRecorder()
		h.SubmitWaitlist(rec, req)
		return rec
	}

	rec := post()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var first waitlistResponse
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if first.Position != 1 {
		t.Fatalf("expected position 1, got %d", first.Position)
	}

	// The replay carries the same envelope, position included.
	rec = post()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
	if rec.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("expected replay header")
	}
	var second waitlistResponse
	if err := json.NewDecoder(rec.Body).Decode(&second); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected replayed id %s, got %s", first.ID, second.ID)
	}
	if second.Position != first.Position {
		t.Errorf("expected replayed position %d, got %d", first.Position, second.Position)
	}
	if len(store.waitlist) != 1 {
		t.Errorf("expected 1 stored entry, got %d", len(store.waitlist))
	}
}
