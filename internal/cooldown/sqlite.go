package cooldown

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/suspectuso/econ-bot/internal/storage"
)

// SQLiteTracker keeps cooldown entries next to the ledger
type SQLiteTracker struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteTracker creates the cooldowns table if needed
func NewSQLiteTracker(db *sql.DB, opts ...Option) (*SQLiteTracker, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS cooldowns (
		account_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		last_used_at INTEGER NOT NULL,
		PRIMARY KEY (account_id, action)
	)`)
	if err != nil {
		return nil, fmt.Errorf("create cooldowns table: %w", err)
	}

	o := buildOptions(opts)
	return &SQLiteTracker{db: db, now: o.now}, nil
}

// TryConsume inserts or refreshes the entry only if the previous use is at
// least window old. The upsert is one statement, so the check and the write
// cannot be split by a concurrent caller.
func (t *SQLiteTracker) TryConsume(ctx context.Context, accountID int64, action storage.Action, window time.Duration) (Decision, error) {
	now := t.now()

	result, err := t.db.ExecContext(ctx,
		`INSERT INTO cooldowns (account_id, action, last_used_at) VALUES (?, ?, ?)
		 ON CONFLICT(account_id, action) DO UPDATE SET last_used_at = excluded.last_used_at
		 WHERE cooldowns.last_used_at <= ?`,
		accountID, string(action), now.UnixMilli(), now.Add(-window).UnixMilli(),
	)
	if err != nil {
		return Decision{}, fmt.Errorf("consume cooldown: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return Decision{}, fmt.Errorf("consume cooldown: %w", err)
	}
	if rows > 0 {
		return Decision{Allowed: true}, nil
	}

	var lastUsed int64
	err = t.db.QueryRowContext(ctx,
		`SELECT last_used_at FROM cooldowns WHERE account_id = ? AND action = ?`,
		accountID, string(action),
	).Scan(&lastUsed)
	if err != nil {
		return Decision{}, fmt.Errorf("read cooldown: %w", err)
	}

	remaining := time.UnixMilli(lastUsed).Add(window).Sub(now)
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	return Decision{Allowed: false, Remaining: remaining}, nil
}
