package httpapi

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestSlidingWindowLimiter(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewSlidingWindowLimiter(time.Minute, 2, func() time.Time { return now })

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("expected first two calls to be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected third call to be denied")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("expected another client to keep its own budget")
	}

	now = now.Add(30 * time.Second)
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected call within window to still be denied")
	}

	now = now.Add(31 * time.Second)
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected limiter to permit call after window passes")
	}
	if limiter.Clients() != 2 {
		t.Fatalf("expected two tracked clients, got %d", limiter.Clients())
	}
}

func TestSlidingWindowLimiterDisabled(t *testing.T) {
	if !NewSlidingWindowLimiter(0, 0, nil).Allow("anyone") {
		t.Fatal("limiter with zero configuration should allow")
	}
	var limiter *SlidingWindowLimiter
	if !limiter.Allow("anyone") {
		t.Fatal("nil limiter should allow")
	}
}

func TestClientKeyStripsPort(t *testing.T) {
	req := httptest.NewRequest("GET", "/simulate", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	if got := clientKey(req); got != "192.0.2.7" {
		t.Fatalf("unexpected key %q", got)
	}
	req.RemoteAddr = "unix-socket"
	if got := clientKey(req); got != "unix-socket" {
		t.Fatalf("unexpected fallback key %q", got)
	}
}
