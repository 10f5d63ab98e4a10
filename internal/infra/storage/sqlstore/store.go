// Package sqlstore persists wallet state snapshots in Postgres or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/vietddude/balancewatch/internal/core/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Driver names accepted by Open.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

const upsertQuery = `
INSERT INTO wallet_states (chain, address, last_amount, last_value_usd, last_observed_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (chain, address) DO UPDATE SET
    last_amount = excluded.last_amount,
    last_value_usd = excluded.last_value_usd,
    last_observed_ms = excluded.last_observed_ms`

// Store is a SnapshotRepository backed by a SQL database.
type Store struct {
	db     *sqlx.DB
	upsert string
}

type stateRow struct {
	Chain          string         `db:"chain"`
	Address        string         `db:"address"`
	LastAmount     string         `db:"last_amount"`
	LastValueUSD   sql.NullString `db:"last_value_usd"`
	LastObservedMs int64          `db:"last_observed_ms"`
}

// Open connects using driver ("pgx" or "sqlite") and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, upsert: db.Rebind(upsertQuery)}, nil
}

func dialectFor(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "postgres", nil
	case DriverSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// Load implements storage.SnapshotRepository.
func (s *Store) Load(ctx context.Context) ([]domain.WalletState, error) {
	var rows []stateRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT chain, address, last_amount, last_value_usd, last_observed_ms FROM wallet_states`)
	if err != nil {
		return nil, fmt.Errorf("select wallet states: %w", err)
	}

	states := make([]domain.WalletState, 0, len(rows))
	for _, r := range rows {
		st, err := r.toState()
		if err != nil {
			return nil, fmt.Errorf("decode %s:%s: %w", r.Chain, r.Address, err)
		}
		states = append(states, st)
	}
	return states, nil
}

// Save implements storage.SnapshotRepository. All rows are written in one
// transaction.
func (s *Store) Save(ctx context.Context, states []domain.WalletState) error {
	if len(states) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, st := range states {
		var usd sql.NullString
		if st.LastValueUSD.Valid {
			usd = sql.NullString{String: st.LastValueUSD.Decimal.String(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, s.upsert,
			string(st.Key.Chain),
			st.Key.Address,
			st.LastAmount.String(),
			usd,
			st.LastObservedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", st.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Reset deletes every stored state.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM wallet_states`); err != nil {
		return fmt.Errorf("delete wallet states: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (r stateRow) toState() (domain.WalletState, error) {
	amount, err := decimal.NewFromString(r.LastAmount)
	if err != nil {
		return domain.WalletState{}, err
	}

	st := domain.WalletState{
		Key:            domain.WalletKey{Chain: domain.ChainID(r.Chain), Address: r.Address},
		LastAmount:     amount,
		LastObservedAt: time.UnixMilli(r.LastObservedMs).UTC(),
	}
	if r.LastValueUSD.Valid {
		v, err := decimal.NewFromString(r.LastValueUSD.String)
		if err != nil {
			return domain.WalletState{}, err
		}
		st.LastValueUSD = decimal.NewNullDecimal(v)
	}
	return st, nil
}
