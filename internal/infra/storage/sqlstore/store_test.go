package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/storage"
)

var _ storage.SnapshotRepository = (*Store)(nil)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveLoad(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "state.db"))
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)

	in := []domain.WalletState{
		{
			Key:            domain.NewWalletKey(domain.ChainETH, "0xabc"),
			LastAmount:     decimal.RequireFromString("12.345678901234567890"),
			LastValueUSD:   decimal.NewNullDecimal(decimal.RequireFromString("40000.01")),
			LastObservedAt: at,
		},
		{
			Key:            domain.NewWalletKey(domain.ChainTRX, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"),
			LastAmount:     decimal.Zero,
			LastObservedAt: at,
		},
	}
	require.NoError(t, s.Save(ctx, in))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)

	byKey := map[domain.WalletKey]domain.WalletState{}
	for _, st := range out {
		byKey[st.Key] = st
	}
	eth := byKey[in[0].Key]
	require.True(t, eth.LastAmount.Equal(in[0].LastAmount))
	require.True(t, eth.LastValueUSD.Valid)
	require.True(t, eth.LastValueUSD.Decimal.Equal(in[0].LastValueUSD.Decimal))
	require.True(t, eth.LastObservedAt.Equal(at))

	trx := byKey[in[1].Key]
	require.True(t, trx.LastAmount.IsZero())
	require.False(t, trx.LastValueUSD.Valid)
}

func TestStore_Upsert(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "state.db"))
	ctx := context.Background()
	key := domain.NewWalletKey(domain.ChainSOL, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

	require.NoError(t, s.Save(ctx, []domain.WalletState{{Key: key, LastAmount: decimal.NewFromInt(1)}}))
	require.NoError(t, s.Save(ctx, []domain.WalletState{{Key: key, LastAmount: decimal.NewFromInt(7)}}))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "7", out[0].LastAmount.String())
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()
	key := domain.NewWalletKey(domain.ChainSUI, "0x2")

	first, err := Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, []domain.WalletState{{Key: key, LastAmount: decimal.NewFromInt(3)}}))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	out, err := second.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, key, out[0].Key)
}

func TestStore_Reset(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "state.db"))
	ctx := context.Background()
	key := domain.NewWalletKey(domain.ChainAPT, "0x1")

	require.NoError(t, s.Save(ctx, []domain.WalletState{{Key: key, LastAmount: decimal.NewFromInt(2)}}))
	require.NoError(t, s.Reset(ctx))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
}
