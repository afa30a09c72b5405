package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// --- Transaction log ---

// AppendTransaction writes an audit record. ID and CreatedAt are filled in
// when empty.
func (s *Storage) AppendTransaction(ctx context.Context, tx *Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, from_id, to_id, amount, kind, context, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, nullableID(tx.FromID), nullableID(tx.ToID), tx.Amount, string(tx.Kind), tx.Context, tx.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// RecentTransactions returns the latest records where id is either party
func (s *Storage) RecentTransactions(ctx context.Context, id int64, limit int) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_id, to_id, amount, kind, context, created_at
		 FROM transactions WHERE from_id = ? OR to_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		id, id, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var tx Transaction
		var fromID, toID sql.NullInt64
		var kind string
		var createdAt int64

		if err := rows.Scan(&tx.ID, &fromID, &toID, &tx.Amount, &kind, &tx.Context, &createdAt); err != nil {
			return nil, err
		}

		tx.Kind = Action(kind)
		tx.CreatedAt = time.Unix(createdAt, 0)
		if fromID.Valid {
			tx.FromID = &fromID.Int64
		}
		if toID.Valid {
			tx.ToID = &toID.Int64
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// --- Leaderboards ---

// TopByBalance returns the richest accounts
func (s *Storage) TopByBalance(ctx context.Context, limit int) ([]Account, error) {
	return s.listAccounts(ctx, `SELECT `+accountColumns+` FROM accounts
		 WHERE balance > 0 ORDER BY balance DESC, id ASC LIMIT ?`, limit)
}

// TopByKills returns the accounts with the most kills
func (s *Storage) TopByKills(ctx context.Context, limit int) ([]Account, error) {
	return s.listAccounts(ctx, `SELECT `+accountColumns+` FROM accounts
		 WHERE kills > 0 ORDER BY kills DESC, id ASC LIMIT ?`, limit)
}

// TotalBalance returns the sum of all balances
func (s *Storage) TotalBalance(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(balance), 0) FROM accounts`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total balance: %w", err)
	}
	return total, nil
}

func (s *Storage) listAccounts(ctx context.Context, query string, args ...any) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}

	return accounts, rows.Err()
}
