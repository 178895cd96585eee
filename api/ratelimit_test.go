package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestLimit_AllowsWithinBurst(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 5)
	defer rl.Close()
	handler := Limit(rl, okHandler)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/feeds", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestLimit_BlocksExcessRequests(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(10*time.Second), 2)
	defer rl.Close()
	handler := Limit(rl, okHandler)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/search", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/search", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "too many requests" {
		t.Fatalf("expected 'too many requests', got %q", body["error"])
	}

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil {
		t.Fatalf("Retry-After not numeric: %q", rec.Header().Get("Retry-After"))
	}
	if retryAfter < 1 || retryAfter > 10 {
		t.Fatalf("expected Retry-After between 1 and 10, got %d", retryAfter)
	}
}

func TestLimit_RejectedRequestsDoNotConsumeTokens(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(50*time.Millisecond), 1)
	defer rl.Close()
	handler := Limit(rl, okHandler)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.9:1"
	handler(httptest.NewRecorder(), req)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
	}

	time.Sleep(80 * time.Millisecond)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected token to refill after rejections, got %d", rec.Code)
	}
}

func TestLimit_PerIPIsolation(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 1)
	defer rl.Close()
	handler := Limit(rl, okHandler)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "1.1.1.1:1234"
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("IP A first request: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("IP A second request: expected 429, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/", nil)
	req2.RemoteAddr = "2.2.2.2:1234"
	rec2 := httptest.NewRecorder()
	handler(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("IP B first request: expected 200, got %d", rec2.Code)
	}
}

func TestLimit_NilLimiterPassesThrough(t *testing.T) {
	handler := Limit(nil, okHandler)
	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestNewIPRateLimiterPerMinute(t *testing.T) {
	if rl := NewIPRateLimiterPerMinute(0, 10); rl != nil {
		t.Fatal("expected nil limiter when disabled")
	}
	rl := NewIPRateLimiterPerMinute(120, 4)
	defer rl.Close()
	if rl.rate != rate.Every(500*time.Millisecond) {
		t.Fatalf("expected one token per 500ms, got %v", rl.rate)
	}
	if rl.burst != 4 {
		t.Fatalf("expected burst 4, got %d", rl.burst)
	}
}

func TestEvictIdle(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 1)
	defer rl.Close()
	rl.getLimiter("10.1.1.1")
	rl.getLimiter("10.1.1.2")

	if n := rl.evictIdle(time.Now()); n != 0 {
		t.Fatalf("expected nothing evicted, got %d", n)
	}
	if n := rl.evictIdle(time.Now().Add(limiterIdleEviction + time.Second)); n != 2 {
		t.Fatalf("expected 2 evicted, got %d", n)
	}
}

func TestGetClientIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	if ip := getClientIP(req); ip != "203.0.113.50" {
		t.Fatalf("expected 203.0.113.50, got %q", ip)
	}
}

func TestGetClientIP_XRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.10")
	if ip := getClientIP(req); ip != "198.51.100.10" {
		t.Fatalf("expected 198.51.100.10, got %q", ip)
	}
}

func TestGetClientIP_RemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:54321"
	if ip := getClientIP(req); ip != "192.0.2.1" {
		t.Fatalf("expected 192.0.2.1, got %q", ip)
	}
}
