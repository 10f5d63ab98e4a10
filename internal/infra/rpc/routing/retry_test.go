package routing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/rpc/provider"
)

// MockProvider implements provider.Provider with a scripted Execute.
type MockProvider struct {
	name      string
	available bool
	calls     atomic.Int32
	ExecFunc  func(call int) (any, error)
}

func newMock(name string, fn func(call int) (any, error)) *MockProvider {
	return &MockProvider{name: name, available: true, ExecFunc: fn}
}

func (m *MockProvider) GetName() string   { return m.name }
func (m *MockProvider) IsAvailable() bool { return m.available }
func (m *MockProvider) Close() error      { return nil }

func (m *MockProvider) GetHealth() provider.HealthStatus {
	return provider.HealthStatus{Available: m.available}
}

func (m *MockProvider) Execute(ctx context.Context, op provider.Operation) (any, error) {
	n := int(m.calls.Add(1))
	return m.ExecFunc(n)
}

var fastRetry = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    time.Millisecond,
	MaxDelay:        5 * time.Millisecond,
	BackoffMultiple: 2,
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		expect ErrorAction
	}{
		{fmt.Errorf("%w (429)", provider.ErrRateLimited), ActionFailover},
		{fmt.Errorf("%w (403)", provider.ErrBlocked), ActionFailover},
		{provider.ErrThrottled, ActionFailover},
		{&provider.RPCError{Code: provider.CodeInvalidParams, Message: "bad address"}, ActionFatal},
		{&provider.RPCError{Code: provider.CodeMethodNotFound}, ActionFatal},
		{&provider.RPCError{Code: -32000, Message: "header not found"}, ActionRetry},
		{&provider.StatusError{StatusCode: 404}, ActionFatal},
		{&provider.StatusError{StatusCode: 408}, ActionRetry},
		{&provider.StatusError{StatusCode: 502}, ActionRetry},
		{fmt.Errorf("%w: eof", provider.ErrMalformedResponse), ActionRetry},
		{&net.OpError{Op: "dial", Err: errors.New("connection refused")}, ActionRetry},
		{context.Canceled, ActionFatal},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.expect {
			t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestCallWithRetry_RecoversFromTransientError(t *testing.T) {
	p := newMock("primary", func(call int) (any, error) {
		if call < 3 {
			return nil, &provider.StatusError{StatusCode: 503}
		}
		return "ok", nil
	})

	result, err := CallWithRetry(context.Background(), p, provider.Operation{Name: "x"}, fastRetry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected ok, got %v", result)
	}
	if got := p.calls.Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestCallWithRetry_StopsOnFatal(t *testing.T) {
	p := newMock("primary", func(int) (any, error) {
		return nil, &provider.RPCError{Code: provider.CodeInvalidParams}
	})

	_, err := CallWithRetry(context.Background(), p, provider.Operation{Name: "x"}, fastRetry)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestCallWithRetry_ExhaustsAttempts(t *testing.T) {
	p := newMock("primary", func(int) (any, error) {
		return nil, &provider.StatusError{StatusCode: 500}
	})

	_, err := CallWithRetry(context.Background(), p, provider.Operation{Name: "x"}, fastRetry)
	var se *provider.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected wrapped StatusError, got %v", err)
	}
	if got := p.calls.Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestCallWithRetry_DeadlineBoundsRetries(t *testing.T) {
	p := newMock("primary", func(int) (any, error) {
		return nil, &provider.StatusError{StatusCode: 500}
	})
	cfg := RetryConfig{MaxAttempts: 10, InitialDelay: time.Second, MaxDelay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := CallWithRetry(ctx, p, provider.Operation{Name: "x"}, cfg)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("retry outlived the deadline: %v", time.Since(start))
	}
}

func TestCallWithRetryAndFailover(t *testing.T) {
	primary := newMock("ETH/primary", func(int) (any, error) {
		return nil, fmt.Errorf("%w (429)", provider.ErrRateLimited)
	})
	fallback := newMock("ETH/fallback-1", func(int) (any, error) {
		return "0x10", nil
	})

	r := NewRouter()
	r.AddProvider(domain.ChainETH, primary)
	r.AddProvider(domain.ChainETH, fallback)

	result, err := CallWithRetryAndFailover(
		context.Background(), r, domain.ChainETH, provider.Operation{Name: "eth_getBalance"}, fastRetry,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "0x10" {
		t.Errorf("expected fallback result, got %v", result)
	}
	if got := primary.calls.Load(); got != 1 {
		t.Errorf("rate limited primary should not be retried, got %d calls", got)
	}
}

func TestCallWithRetryAndFailover_FatalSkipsFallback(t *testing.T) {
	primary := newMock("APT/primary", func(int) (any, error) {
		return nil, &provider.StatusError{StatusCode: 404}
	})
	fallback := newMock("APT/fallback-1", func(int) (any, error) {
		return "unexpected", nil
	})

	r := NewRouter()
	r.AddProvider(domain.ChainAPT, primary)
	r.AddProvider(domain.ChainAPT, fallback)

	_, err := CallWithRetryAndFailover(
		context.Background(), r, domain.ChainAPT, provider.Operation{Name: "accounts/0x1", IsREST: true}, fastRetry,
	)
	var se *provider.StatusError
	if !errors.As(err, &se) || se.StatusCode != 404 {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if fallback.calls.Load() != 0 {
		t.Error("fallback should not be called after a fatal error")
	}
}

func TestCallWithRetryAndFailover_NoProviders(t *testing.T) {
	_, err := CallWithRetryAndFailover(
		context.Background(), NewRouter(), domain.ChainSUI, provider.Operation{Name: "x"}, fastRetry,
	)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second, BackoffMultiple: 2}

	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for attempt, w := range want {
		if got := calculateBackoff(attempt, cfg); got != w {
			t.Errorf("attempt %d: got %v, want %v", attempt, got, w)
		}
	}
}
