package storage

import (
	"context"

	"github.com/vietddude/balancewatch/internal/core/domain"
)

// StateStore holds the last successful observation per wallet. Access is
// partitioned by key: operations on different keys never serialize against
// each other.
type StateStore interface {
	// Get returns the state for key, or false when the wallet was never observed.
	Get(key domain.WalletKey) (domain.WalletState, bool)

	// Put records state for key. The last write wins.
	Put(key domain.WalletKey, state domain.WalletState)
}

// SnapshotRepository persists the prior snapshot so a restart does not
// re-announce every wallet as a first observation.
type SnapshotRepository interface {
	// Load returns every persisted state.
	Load(ctx context.Context) ([]domain.WalletState, error)

	// Save upserts the given states.
	Save(ctx context.Context, states []domain.WalletState) error

	// Reset removes every persisted state.
	Reset(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
