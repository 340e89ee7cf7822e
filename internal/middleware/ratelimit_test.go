package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/identity"
)

func setupRateLimiter(t *testing.T, maxReqs, windowSec int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, maxReqs, windowSec), mr
}

func searchRequest(userID, remoteAddr string) *http.Request {
	req := httptest.NewRequest("POST", "/api/v1/search", nil)
	req.RemoteAddr = remoteAddr
	if userID != "" {
		req.Header.Set(identity.HeaderUserID, userID)
	}
	return req
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl, _ := setupRateLimiter(t, 5, 60)

	handler := identity.Middleware(rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, searchRequest("user-1", "192.168.1.1:12345"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl, _ := setupRateLimiter(t, 3, 60)

	handler := identity.Middleware(rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, searchRequest("user-1", "10.0.0.1:12345"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	// 4th request should be blocked
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, searchRequest("user-1", "10.0.0.1:12345"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After: 60, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_DifferentUsersIndependent(t *testing.T) {
	rl, _ := setupRateLimiter(t, 2, 60)

	handler := identity.Middleware(rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	// Exhaust user-1 from one address
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, searchRequest("user-1", "1.1.1.1:1"))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, searchRequest("user-1", "1.1.1.1:1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for exhausted user, got %d", rec.Code)
	}

	// user-2 from the same address is keyed separately
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, searchRequest("user-2", "1.1.1.1:1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for different user, got %d", rec.Code)
	}
}

func TestRateLimiter_FallsBackToIPWithoutIdentity(t *testing.T) {
	rl, _ := setupRateLimiter(t, 1, 60)

	// No identity middleware in front: keying falls back to client IP.
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, searchRequest("", "5.5.5.5:1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, searchRequest("", "5.5.5.5:1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for same IP, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, searchRequest("", "6.6.6.6:1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for different IP, got %d", rec.Code)
	}
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	rl, mr := setupRateLimiter(t, 1, 60)
	mr.Close() // kill Redis

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, searchRequest("user-1", "3.3.3.3:1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on Redis failure (fail-open), got %d", rec.Code)
	}
}
