// Package rpc provides a resilient client for blockchain endpoints.
//
// Each chain gets a Client over an ordered list of HTTP providers: the
// configured primary URL first, then any fallback URLs. Calls are retried
// with exponential backoff on transient errors and fail over to the next
// provider on rate limiting or blocking.
//
// # Quick Start
//
//	client, err := rpc.NewClientFromConfig(domain.ChainETH, rpc.EndpointConfig{
//	    URL:     "https://eth.example.org",
//	    Timeout: 10 * time.Second,
//	}, rpc.DefaultRetryConfig)
//
//	result, err := client.Execute(ctx, rpc.NewHTTPOperation("eth_getBalance", []any{addr, "latest"}))
//
// # Package Structure
//
//   - provider/ - HTTP provider, throttle monitoring, typed transport errors
//   - routing/  - provider ordering, circuit breaker, retry logic
//
// Most types are re-exported at the root level for convenience.
package rpc

import (
	"time"

	"github.com/vietddude/balancewatch/internal/infra/rpc/provider"
	"github.com/vietddude/balancewatch/internal/infra/rpc/routing"
)

// Provider is the core interface for chain endpoints.
type Provider = provider.Provider

// HTTPProvider implements Provider for JSON-RPC and REST over HTTP.
type HTTPProvider = provider.HTTPProvider

// Operation represents a call to execute (transport-agnostic).
type Operation = provider.Operation

// HealthStatus represents the health state of a provider.
type HealthStatus = provider.HealthStatus

// RetryConfig defines retry behavior.
type RetryConfig = routing.RetryConfig

// ProviderReport is a point-in-time view of a provider.
type ProviderReport = routing.ProviderReport

// DefaultRetryConfig provides sensible retry defaults.
var DefaultRetryConfig = routing.DefaultRetryConfig

// Typed transport errors.
var (
	ErrRateLimited       = provider.ErrRateLimited
	ErrBlocked           = provider.ErrBlocked
	ErrThrottled         = provider.ErrThrottled
	ErrMalformedResponse = provider.ErrMalformedResponse
)

// CodeInvalidParams is the JSON-RPC code for rejected parameters.
const CodeInvalidParams = provider.CodeInvalidParams

// StatusError is a non-2xx HTTP response.
type StatusError = provider.StatusError

// RPCError is a JSON-RPC error object.
type RPCError = provider.RPCError

// NewHTTPProvider creates a new HTTP provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout)
}
