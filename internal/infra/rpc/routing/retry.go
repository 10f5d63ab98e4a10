package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/rpc/provider"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    500 * time.Millisecond,
	MaxDelay:        5 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFailover
	ActionFatal
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFailover:
		return "failover"
	case ActionFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry
	}

	// Request issues: the same request fails everywhere.
	var rpcErr *provider.RPCError
	if errors.As(err, &rpcErr) && rpcErr.IsRequestError() {
		return ActionFatal
	}
	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 &&
		statusErr.StatusCode != http.StatusRequestTimeout {
		return ActionFatal
	}
	if errors.Is(err, context.Canceled) {
		return ActionFatal
	}

	// Provider specific issues
	if errors.Is(err, provider.ErrRateLimited) ||
		errors.Is(err, provider.ErrBlocked) ||
		errors.Is(err, provider.ErrThrottled) {
		return ActionFailover
	}

	// Default to Retry (network, 5xx, malformed bodies, timeouts)
	return ActionRetry
}

// CallWithRetry executes an operation with exponential backoff.
func CallWithRetry(
	ctx context.Context,
	p provider.Provider,
	op provider.Operation,
	config RetryConfig,
) (any, error) {
	var lastErr error
	attempts := max(config.MaxAttempts, 1)

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := p.Execute(ctx, op)
		if err == nil {
			return result, nil
		}

		lastErr = err

		// The caller's deadline bounds the whole retry sequence.
		if ctx.Err() != nil {
			return nil, err
		}

		action := ClassifyError(err)
		if action != ActionRetry {
			return nil, err
		}

		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(calculateBackoff(attempt, config))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// CallWithRetryAndFailover tries each candidate provider in order, retrying
// transient errors on each one before moving on.
func CallWithRetryAndFailover(
	ctx context.Context,
	router *Router,
	chainID domain.ChainID,
	op provider.Operation,
	config RetryConfig,
) (any, error) {
	providers := router.Candidates(chainID)
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers for chain %s", chainID)
	}

	var lastErr error
	for _, p := range providers {
		start := time.Now()
		result, err := CallWithRetry(ctx, p, op, config)
		latency := time.Since(start)
		if err == nil {
			router.RecordSuccess(p.GetName(), latency)
			return result, nil
		}

		lastErr = err

		if ClassifyError(err) == ActionFatal {
			return nil, fmt.Errorf("provider %s: %w", p.GetName(), err)
		}
		router.RecordFailure(p.GetName(), err)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	multiple := config.BackoffMultiple
	if multiple <= 0 {
		multiple = 2.0
	}
	delay := float64(config.InitialDelay) * math.Pow(multiple, float64(attempt))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
