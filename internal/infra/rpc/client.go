package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/rpc/provider"
	"github.com/vietddude/balancewatch/internal/infra/rpc/routing"
)

// EndpointConfig describes the endpoints for one chain.
type EndpointConfig struct {
	URL          string
	FallbackURLs []string
	Headers      map[string]string
	Timeout      time.Duration
}

// Client is the high-level interface for making calls against one chain.
// This is what chain adapters should use.
type Client struct {
	chainID domain.ChainID
	router  *routing.Router
	retry   routing.RetryConfig
}

// NewClient creates a client over an existing router.
func NewClient(chainID domain.ChainID, router *routing.Router, retry routing.RetryConfig) *Client {
	return &Client{
		chainID: chainID,
		router:  router,
		retry:   retry,
	}
}

// NewClientFromConfig builds HTTP providers for the primary and fallback
// URLs and registers them in order.
func NewClientFromConfig(
	chainID domain.ChainID,
	cfg EndpointConfig,
	retry routing.RetryConfig,
) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("no rpc url for chain %s", chainID)
	}

	router := routing.NewRouter()
	urls := append([]string{cfg.URL}, cfg.FallbackURLs...)
	for i, url := range urls {
		name := fmt.Sprintf("%s/primary", chainID)
		if i > 0 {
			name = fmt.Sprintf("%s/fallback-%d", chainID, i)
		}
		p := provider.NewHTTPProvider(name, url, cfg.Timeout)
		for k, v := range cfg.Headers {
			p.SetHeader(k, v)
		}
		router.AddProvider(chainID, p)
	}

	slog.Debug("rpc client configured", "chain", chainID, "providers", len(urls))
	return NewClient(chainID, router, retry), nil
}

// Execute runs the operation with retry and failover across providers.
func (c *Client) Execute(ctx context.Context, op Operation) (any, error) {
	start := time.Now()
	result, err := routing.CallWithRetryAndFailover(ctx, c.router, c.chainID, op, c.retry)
	if err != nil {
		slog.Debug("rpc call failed",
			"chain", c.chainID,
			"op", op.Name,
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

// ChainID returns the chain this client serves.
func (c *Client) ChainID() domain.ChainID {
	return c.chainID
}

// ProviderReport returns the state of every provider for health output.
func (c *Client) ProviderReport() []routing.ProviderReport {
	return c.router.Report(c.chainID)
}

// Close releases idle connections on every provider.
func (c *Client) Close() error {
	for _, p := range c.router.GetAllProviders(c.chainID) {
		if err := p.Close(); err != nil {
			return err
		}
	}
	return nil
}
