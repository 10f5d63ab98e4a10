package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/storage"
)

var _ storage.SnapshotRepository = (*Client)(nil)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClient_SaveLoad(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	eth := domain.WalletState{
		Key:            domain.NewWalletKey(domain.ChainETH, "0xabc"),
		LastAmount:     decimal.RequireFromString("1.000000000000000001"),
		LastValueUSD:   decimal.NewNullDecimal(decimal.RequireFromString("3000.5")),
		LastObservedAt: at,
	}
	sol := domain.WalletState{
		Key:            domain.NewWalletKey(domain.ChainSOL, "9xQe"),
		LastAmount:     decimal.RequireFromString("42"),
		LastObservedAt: at,
	}

	require.NoError(t, c.Save(ctx, []domain.WalletState{eth, sol}))

	states, err := c.Load(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)

	byKey := map[domain.WalletKey]domain.WalletState{}
	for _, st := range states {
		byKey[st.Key] = st
	}
	got := byKey[eth.Key]
	require.True(t, got.LastAmount.Equal(eth.LastAmount))
	require.True(t, got.LastValueUSD.Valid)
	require.True(t, got.LastObservedAt.Equal(at))
	require.False(t, byKey[sol.Key].LastValueUSD.Valid)
}

func TestClient_SaveOverwrites(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	key := domain.NewWalletKey(domain.ChainTRX, "TR7")

	require.NoError(t, c.Save(ctx, []domain.WalletState{{Key: key, LastAmount: decimal.NewFromInt(1)}}))
	require.NoError(t, c.Save(ctx, []domain.WalletState{{Key: key, LastAmount: decimal.NewFromInt(2)}}))

	states, err := c.Load(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Equal(t, "2", states[0].LastAmount.String())
}

func TestClient_LoadSkipsCorruptEntries(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, []domain.WalletState{{
		Key:        domain.NewWalletKey(domain.ChainSUI, "0x1"),
		LastAmount: decimal.NewFromInt(5),
	}}))
	mr.HSet(DefaultKey, "SUI:0x2", "not json")

	states, err := c.Load(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
}

func TestClient_Reset(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, []domain.WalletState{{
		Key:        domain.NewWalletKey(domain.ChainAPT, "0x1"),
		LastAmount: decimal.NewFromInt(5),
	}}))
	require.NoError(t, c.Reset(ctx))

	states, err := c.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, states)
}

func TestNewClient_Unreachable(t *testing.T) {
	_, err := NewClient(Config{URL: "redis://127.0.0.1:1"})
	require.Error(t, err)
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(Config{URL: "http://nope"})
	require.Error(t, err)
}
