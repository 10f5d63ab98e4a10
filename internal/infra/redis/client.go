package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/balancewatch/internal/core/domain"
)

// DefaultKey is the hash holding one field per wallet.
const DefaultKey = "balancewatch:wallet_states"

// Client persists wallet state snapshots in a Redis hash.
type Client struct {
	rdb *redis.Client
	key string
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Key      string `yaml:"key"`
}

// NewClient creates a new Redis client and verifies the connection.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	return &Client{rdb: rdb, key: key}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Load returns every stored wallet state. Entries that fail to decode are
// skipped so one corrupt field does not discard the whole snapshot.
func (c *Client) Load(ctx context.Context) ([]domain.WalletState, error) {
	fields, err := c.rdb.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall failed: %w", err)
	}

	states := make([]domain.WalletState, 0, len(fields))
	for _, raw := range fields {
		var st domain.WalletState
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			continue
		}
		states = append(states, st)
	}
	return states, nil
}

// Save upserts the given states in a single pipeline.
func (c *Client) Save(ctx context.Context, states []domain.WalletState) error {
	if len(states) == 0 {
		return nil
	}

	values := make([]any, 0, len(states)*2)
	for _, st := range states {
		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal state %s: %w", st.Key, err)
		}
		values = append(values, st.Key.String(), string(data))
	}

	if err := c.rdb.HSet(ctx, c.key, values...).Err(); err != nil {
		return fmt.Errorf("hset failed: %w", err)
	}
	return nil
}

// Reset removes the stored snapshot.
func (c *Client) Reset(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}
