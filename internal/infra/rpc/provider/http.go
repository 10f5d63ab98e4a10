package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// HTTPProvider implements Provider for JSON-RPC 2.0 and REST over HTTP.
type HTTPProvider struct {
	name       string
	endpoint   string
	httpClient *http.Client
	headers    map[string]string
	nextID     atomic.Uint64

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *ProviderMonitor
}

// NewHTTPProvider creates a new HTTP-based provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		headers: make(map[string]string),
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewProviderMonitor(),
	}
}

// SetHeader adds a header sent with every request (e.g. an API key).
func (p *HTTPProvider) SetHeader(key, value string) {
	p.headers[key] = value
}

// Endpoint returns the base URL of the provider.
func (p *HTTPProvider) Endpoint() string {
	return p.endpoint
}

// Execute dispatches the operation as JSON-RPC or REST.
func (p *HTTPProvider) Execute(ctx context.Context, op Operation) (any, error) {
	if op.IsREST {
		method := op.RESTMethod
		if method == "" {
			method = http.MethodGet
		}
		return p.doREST(ctx, method, op.Name, op.Params)
	}

	var params []any
	switch v := op.Params.(type) {
	case nil:
		params = []any{}
	case []any:
		params = v
	default:
		params = []any{v}
	}
	return p.Call(ctx, op.Name, params)
}

// Call makes a single JSON-RPC 2.0 call.
func (p *HTTPProvider) Call(ctx context.Context, method string, params []any) (any, error) {
	if status := p.Monitor.CheckProviderStatus(); status == StatusThrottled || status == StatusBlocked {
		return nil, fmt.Errorf("%w, retry after: %v", ErrThrottled, p.Monitor.GetRetryAfter())
	}

	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      p.nextID.Add(1),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	body, latency, err := p.send(ctx, http.MethodPost, p.endpoint, jsonData)
	if err != nil {
		return nil, err
	}

	var rpcResp struct {
		Result any             `json:"result"`
		Error  *map[string]any `json:"error"`
	}
	if err := decodeJSON(body, &rpcResp); err != nil {
		p.recordFailure()
		return nil, err
	}

	if rpcResp.Error != nil {
		rpcErr := &RPCError{Message: "unknown error"}
		if msg, ok := (*rpcResp.Error)["message"].(string); ok {
			rpcErr.Message = msg
		}
		if code, ok := (*rpcResp.Error)["code"].(json.Number); ok {
			if n, err := code.Int64(); err == nil {
				rpcErr.Code = int(n)
			}
		}

		p.recordFailure()
		if p.Monitor.DetectThrottlePattern(rpcErr.Message) {
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, rpcErr)
		}
		return nil, rpcErr
	}

	p.Monitor.RecordRequest(latency)
	p.recordSuccess(latency)

	return rpcResp.Result, nil
}

// doREST performs a REST resource call relative to the endpoint.
func (p *HTTPProvider) doREST(ctx context.Context, method, path string, payload any) (any, error) {
	if status := p.Monitor.CheckProviderStatus(); status == StatusThrottled || status == StatusBlocked {
		return nil, fmt.Errorf("%w, retry after: %v", ErrThrottled, p.Monitor.GetRetryAfter())
	}

	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	url := p.endpoint + "/" + strings.TrimLeft(path, "/")
	body, latency, err := p.send(ctx, method, url, data)
	if err != nil {
		return nil, err
	}

	var result any
	if err := decodeJSON(body, &result); err != nil {
		p.recordFailure()
		return nil, err
	}

	p.Monitor.RecordRequest(latency)
	p.recordSuccess(latency)

	return result, nil
}

// send performs the HTTP round trip and maps throttle and status failures.
func (p *HTTPProvider) send(
	ctx context.Context,
	method, url string,
	data []byte,
) ([]byte, time.Duration, error) {
	start := time.Now()

	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.recordFailure()
		return nil, 0, fmt.Errorf("%s %s: %w", method, p.name, err)
	}
	defer resp.Body.Close()

	latency := time.Since(start)

	// Rate limit detection
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		p.Monitor.RecordThrottle(http.StatusTooManyRequests, retryAfter)
		p.recordFailure()
		return nil, latency, fmt.Errorf("%w (429), retry after: %q", ErrRateLimited, retryAfter)
	}

	// IP blocked detection
	if resp.StatusCode == http.StatusForbidden {
		p.Monitor.RecordThrottle(http.StatusForbidden, "")
		p.recordFailure()
		return nil, latency, fmt.Errorf("%w (403)", ErrBlocked)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		p.recordFailure()
		return nil, latency, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.recordFailure()
		if p.Monitor.DetectThrottlePattern(string(body)) {
			return nil, latency, fmt.Errorf("%w: %s", ErrRateLimited, truncate(string(body)))
		}
		return nil, latency, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body))}
	}

	return body, latency, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// GetHealth returns the provider's health status.
func (p *HTTPProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	health := p.health
	p.mu.RUnlock()

	stats := p.Monitor.GetStats()
	health.MonitorStats = &stats
	return health
}

// IsAvailable checks if the provider is available.
func (p *HTTPProvider) IsAvailable() bool {
	status := p.Monitor.CheckProviderStatus()
	return status == StatusHealthy || status == StatusDegraded
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *HTTPProvider) recordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true

	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	p.health.Latency = p.totalLatency / time.Duration(p.successCount)
}

func (p *HTTPProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()
	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)

	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}

// decodeJSON keeps numbers as json.Number so large integer balances are not
// rounded through float64.
func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func truncate(s string) string {
	const limit = 256
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
