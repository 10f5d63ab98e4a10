package provider

import (
	"net/http"
	"testing"
	"time"
)

func newTestMonitor(now *time.Time) *ProviderMonitor {
	m := NewProviderMonitor()
	m.now = func() time.Time { return *now }
	return m
}

func TestMonitor_RetryAfterSeconds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestMonitor(&now)

	m.RecordThrottle(http.StatusTooManyRequests, "10")
	if got := m.CheckProviderStatus(); got != StatusThrottled {
		t.Fatalf("expected throttled, got %s", got)
	}
	if got := m.GetRetryAfter(); got != 10*time.Second {
		t.Errorf("expected 10s retry after, got %v", got)
	}

	now = now.Add(11 * time.Second)
	if got := m.CheckProviderStatus(); got != StatusHealthy {
		t.Errorf("expected healthy after cooldown, got %s", got)
	}
}

func TestMonitor_Repeated429TripsCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestMonitor(&now)

	for i := 0; i < throttleTripCount-1; i++ {
		m.RecordThrottle(http.StatusTooManyRequests, "")
	}
	if got := m.CheckProviderStatus(); got != StatusHealthy {
		t.Fatalf("expected healthy below trip count, got %s", got)
	}

	m.RecordThrottle(http.StatusTooManyRequests, "")
	if got := m.CheckProviderStatus(); got != StatusThrottled {
		t.Errorf("expected throttled at trip count, got %s", got)
	}

	stats := m.GetStats()
	if stats.ThrottleCount429 != throttleTripCount {
		t.Errorf("expected %d 429s, got %d", throttleTripCount, stats.ThrottleCount429)
	}
}

func TestMonitor_SuccessResetsConsecutive429(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestMonitor(&now)

	m.RecordThrottle(http.StatusTooManyRequests, "")
	m.RecordThrottle(http.StatusTooManyRequests, "")
	m.RecordRequest(10 * time.Millisecond)
	m.RecordThrottle(http.StatusTooManyRequests, "")

	if got := m.CheckProviderStatus(); got != StatusHealthy {
		t.Errorf("expected healthy, got %s", got)
	}
}

func TestMonitor_403Blocks(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestMonitor(&now)

	m.RecordThrottle(http.StatusForbidden, "")
	if got := m.CheckProviderStatus(); got != StatusBlocked {
		t.Fatalf("expected blocked, got %s", got)
	}
	if m.GetRetryAfter() != blockedRetryAfter {
		t.Errorf("expected %v, got %v", blockedRetryAfter, m.GetRetryAfter())
	}
}

func TestMonitor_RequestWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestMonitor(&now)

	m.RecordRequest(100 * time.Millisecond)
	now = now.Add(2 * time.Hour)
	for i := 0; i < 5; i++ {
		m.RecordRequest(50 * time.Millisecond)
	}

	stats := m.GetStats()
	if stats.RequestsLastHour != 5 {
		t.Errorf("expected 5 requests in window, got %d", stats.RequestsLastHour)
	}
	// latency window is not time-bounded: (100 + 5*50) / 6
	if want := 350 * time.Millisecond / 6; stats.AverageLatency != want {
		t.Errorf("expected average latency %v, got %v", want, stats.AverageLatency)
	}
}

func TestMonitor_DetectThrottlePattern(t *testing.T) {
	m := NewProviderMonitor()

	if !m.DetectThrottlePattern("Project Rate Limit exceeded") {
		t.Error("expected rate limit message to match")
	}
	if m.DetectThrottlePattern("execution reverted") {
		t.Error("did not expect match")
	}
}
