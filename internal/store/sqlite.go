// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"paper-trader/internal/errors"
	"paper-trader/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db             *sql.DB
	defaultBalance float64
}

// NewSQLiteStore creates a new SQLite-based store. Owners with no balance
// row and no trade history start at defaultBalance.
func NewSQLiteStore(dbPath string, defaultBalance float64) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:             db,
		defaultBalance: defaultBalance,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Active tracked positions, one row per (owner, symbol)
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		symbol TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		target REAL NOT NULL DEFAULT 0,
		state TEXT NOT NULL DEFAULT 'TRACKING',
		fill_price REAL NOT NULL DEFAULT 0,
		invested REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		filled_at DATETIME,
		UNIQUE(owner, symbol)
	);

	-- Append-only ledger of completed round-trip trades
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		symbol TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		pnl REAL NOT NULL,
		reason TEXT NOT NULL,
		entry_time DATETIME NOT NULL,
		exit_time DATETIME NOT NULL,
		balance_after REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Cash balances, one row per owner
	CREATE TABLE IF NOT EXISTS balances (
		owner TEXT PRIMARY KEY,
		value REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_positions_owner ON positions(owner);
	CREATE INDEX IF NOT EXISTS idx_positions_state ON positions(state);
	CREATE INDEX IF NOT EXISTS idx_trades_owner ON trades(owner);
	CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Position Methods
// ============================================================================

// CreatePosition inserts a new tracked position. Fails with
// errors.ErrDuplicatePosition when an active position already exists for
// the same (owner, symbol) pair.
func (s *SQLiteStore) CreatePosition(ctx context.Context, pos *models.TrackedPosition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (id, owner, symbol, quantity, entry_price, stop_loss, target, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pos.ID, pos.Owner, pos.Symbol, pos.Quantity, pos.EntryPrice, pos.StopLoss, pos.Target, string(pos.State), pos.CreatedAt)
	if err != nil {
		var exists int
		checkErr := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM positions WHERE owner = ? AND symbol = ?`,
			pos.Owner, pos.Symbol).Scan(&exists)
		if checkErr == nil && exists > 0 {
			return errors.ErrDuplicatePosition
		}
		return errors.NewStoreError("create_position", pos.Symbol, err)
	}
	return nil
}

// GetPosition returns the active position for (owner, symbol).
func (s *SQLiteStore) GetPosition(ctx context.Context, owner, symbol string) (*models.TrackedPosition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, symbol, quantity, entry_price, stop_loss, target, state, fill_price, invested, created_at, filled_at
		FROM positions WHERE owner = ? AND symbol = ?
	`, owner, symbol)

	pos, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrPositionNotFound
	}
	if err != nil {
		return nil, errors.NewStoreError("get_position", symbol, err)
	}
	return pos, nil
}

// ListPositions returns active positions for an owner, or for all owners
// when owner is empty.
func (s *SQLiteStore) ListPositions(ctx context.Context, owner string) ([]models.TrackedPosition, error) {
	query := `
		SELECT id, owner, symbol, quantity, entry_price, stop_loss, target, state, fill_price, invested, created_at, filled_at
		FROM positions`
	args := []interface{}{}
	if owner != "" {
		query += " WHERE owner = ?"
		args = append(args, owner)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStoreError("list_positions", owner, err)
	}
	defer rows.Close()

	var positions []models.TrackedPosition
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, errors.NewStoreError("list_positions", owner, err)
		}
		positions = append(positions, *pos)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("list_positions", owner, err)
	}
	return positions, nil
}

// UpdateLevels modifies the stop-loss and target of an active position.
// Legal in any state.
func (s *SQLiteStore) UpdateLevels(ctx context.Context, owner, symbol string, stopLoss, target float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions SET stop_loss = ?, target = ? WHERE owner = ? AND symbol = ?
	`, stopLoss, target, owner, symbol)
	if err != nil {
		return errors.NewStoreError("update_levels", symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStoreError("update_levels", symbol, err)
	}
	if n == 0 {
		return errors.ErrPositionNotFound
	}
	return nil
}

// DeletePosition removes a position that has not yet filled. The delete is
// conditional on state so that a fill racing the delete is resolved by
// whichever lands first.
func (s *SQLiteStore) DeletePosition(ctx context.Context, owner, symbol string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM positions WHERE owner = ? AND symbol = ? AND state = ?
	`, owner, symbol, string(models.StateTracking))
	if err != nil {
		return errors.NewStoreError("delete_position", symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStoreError("delete_position", symbol, err)
	}
	if n > 0 {
		return nil
	}

	// Nothing deleted: either the position filled first or it never existed.
	var state string
	err = s.db.QueryRowContext(ctx,
		`SELECT state FROM positions WHERE owner = ? AND symbol = ?`,
		owner, symbol).Scan(&state)
	if err == sql.ErrNoRows {
		return errors.ErrPositionNotFound
	}
	if err != nil {
		return errors.NewStoreError("delete_position", symbol, err)
	}
	return errors.ErrCannotDeleteWhileHolding
}

// ============================================================================
// Lifecycle Transitions
// ============================================================================

// FillPosition transitions a position from Tracking to Holding and debits
// the invested amount, in one transaction. Fails with
// errors.ErrInsufficientFunds when the owner's balance cannot cover the
// invested amount, and with errors.ErrConflict when the position is no
// longer in Tracking state.
func (s *SQLiteStore) FillPosition(ctx context.Context, id string, fill models.FillDetails) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("fill_position", id, err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx,
		`SELECT owner FROM positions WHERE id = ? AND state = ?`,
		id, string(models.StateTracking)).Scan(&owner)
	if err == sql.ErrNoRows {
		return errors.ErrConflict
	}
	if err != nil {
		return errors.NewStoreError("fill_position", id, err)
	}

	balance, err := s.balanceTx(ctx, tx, owner)
	if err != nil {
		return err
	}
	if balance < fill.InvestedAmount {
		return errors.ErrInsufficientFunds
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE positions SET state = ?, fill_price = ?, invested = ?, filled_at = ?
		WHERE id = ? AND state = ?
	`, string(models.StateHolding), fill.FillPrice, fill.InvestedAmount, fill.FilledAt, id, string(models.StateTracking))
	if err != nil {
		return errors.NewStoreError("fill_position", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStoreError("fill_position", id, err)
	}
	if n == 0 {
		return errors.ErrConflict
	}

	if err := s.writeBalanceTx(ctx, tx, owner, balance-fill.InvestedAmount); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("fill_position", id, err)
	}
	return nil
}

// ClosePosition removes a Holding position, credits the exit proceeds and
// appends the trade record, in one transaction. rec.BalanceAfter is set to
// the credited balance before the record is written. Fails with
// errors.ErrConflict when the position is not in Holding state.
func (s *SQLiteStore) ClosePosition(ctx context.Context, id string, rec *models.TradeRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("close_position", id, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM positions WHERE id = ? AND state = ?`,
		id, string(models.StateHolding))
	if err != nil {
		return errors.NewStoreError("close_position", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStoreError("close_position", id, err)
	}
	if n == 0 {
		return errors.ErrConflict
	}

	balance, err := s.balanceTx(ctx, tx, rec.Owner)
	if err != nil {
		return err
	}
	rec.BalanceAfter = balance + rec.ExitPrice*float64(rec.Quantity)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trades (id, owner, symbol, quantity, entry_price, exit_price, pnl, reason, entry_time, exit_time, balance_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Owner, rec.Symbol, rec.Quantity, rec.EntryPrice, rec.ExitPrice, rec.PnL, string(rec.Reason), rec.EntryTime, rec.ExitTime, rec.BalanceAfter)
	if err != nil {
		return errors.NewStoreError("close_position", id, err)
	}

	if err := s.writeBalanceTx(ctx, tx, rec.Owner, rec.BalanceAfter); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("close_position", id, err)
	}
	return nil
}

// ============================================================================
// Ledger Methods
// ============================================================================

// ListTrades returns ledger records for an owner, most recent exit first.
func (s *SQLiteStore) ListTrades(ctx context.Context, owner string, filter TradeFilter) ([]models.TradeRecord, error) {
	query := `
		SELECT id, owner, symbol, quantity, entry_price, exit_price, pnl, reason, entry_time, exit_time, balance_after
		FROM trades WHERE owner = ?`
	args := []interface{}{owner}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND exit_time >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND exit_time <= ?"
		args = append(args, filter.EndDate)
	}
	query += " ORDER BY exit_time DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStoreError("list_trades", owner, err)
	}
	defer rows.Close()

	var trades []models.TradeRecord
	for rows.Next() {
		var t models.TradeRecord
		var reason string
		if err := rows.Scan(&t.ID, &t.Owner, &t.Symbol, &t.Quantity, &t.EntryPrice, &t.ExitPrice, &t.PnL, &reason, &t.EntryTime, &t.ExitTime, &t.BalanceAfter); err != nil {
			return nil, errors.NewStoreError("list_trades", owner, err)
		}
		t.Reason = models.ExitReason(reason)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("list_trades", owner, err)
	}
	return trades, nil
}

// LastTrade returns the most recently closed trade for an owner, or nil
// when the ledger is empty.
func (s *SQLiteStore) LastTrade(ctx context.Context, owner string) (*models.TradeRecord, error) {
	trades, err := s.ListTrades(ctx, owner, TradeFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, nil
	}
	return &trades[0], nil
}

// ============================================================================
// Balance Methods
// ============================================================================

// GetBalance returns the owner's cash balance. When no balance row exists
// the balance is reconstructed from the last trade record's balance_after,
// falling back to the configured default for owners with no history.
func (s *SQLiteStore) GetBalance(ctx context.Context, owner string) (float64, error) {
	var value float64
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM balances WHERE owner = ?`, owner).Scan(&value)
	if err == nil {
		return value, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.NewStoreError("get_balance", owner, err)
	}

	last, err := s.LastTrade(ctx, owner)
	if err != nil {
		return 0, err
	}
	if last != nil {
		return last.BalanceAfter, nil
	}
	return s.defaultBalance, nil
}

// SetBalance overrides the owner's cash balance.
func (s *SQLiteStore) SetBalance(ctx context.Context, owner string, amount float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (owner, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, owner, amount)
	if err != nil {
		return errors.NewStoreError("set_balance", owner, err)
	}
	return nil
}

// balanceTx reads the owner's balance inside a transaction, applying the
// same ledger-recovery fallback as GetBalance.
func (s *SQLiteStore) balanceTx(ctx context.Context, tx *sql.Tx, owner string) (float64, error) {
	var value float64
	err := tx.QueryRowContext(ctx,
		`SELECT value FROM balances WHERE owner = ?`, owner).Scan(&value)
	if err == nil {
		return value, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.NewStoreError("get_balance", owner, err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT balance_after FROM trades WHERE owner = ? ORDER BY exit_time DESC, id DESC LIMIT 1`,
		owner).Scan(&value)
	if err == nil {
		return value, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.NewStoreError("get_balance", owner, err)
	}
	return s.defaultBalance, nil
}

func (s *SQLiteStore) writeBalanceTx(ctx context.Context, tx *sql.Tx, owner string, value float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (owner, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, owner, value)
	if err != nil {
		return errors.NewStoreError("set_balance", owner, err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanPosition.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row scanner) (*models.TrackedPosition, error) {
	var pos models.TrackedPosition
	var state string
	var filledAt sql.NullTime
	err := row.Scan(&pos.ID, &pos.Owner, &pos.Symbol, &pos.Quantity, &pos.EntryPrice, &pos.StopLoss, &pos.Target, &state, &pos.FillPrice, &pos.InvestedAmount, &pos.CreatedAt, &filledAt)
	if err != nil {
		return nil, err
	}
	pos.State = models.PositionState(state)
	if filledAt.Valid {
		pos.FilledAt = filledAt.Time
	}
	return &pos, nil
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
