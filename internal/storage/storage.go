package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownAction = errors.New("unknown action")
)

// Storage is the ledger store. Every mutation is a single SQL statement whose
// WHERE clause carries its precondition, so no two writers can interleave
// between the check and the write on the same account.
type Storage struct {
	db *sql.DB
}

// New opens the SQLite database at dbPath and initializes the schema
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB exposes the handle so the cooldown tracker can share the same file
func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
			tier TEXT NOT NULL DEFAULT 'standard',
			is_dead INTEGER NOT NULL DEFAULT 0,
			protected_until INTEGER,
			daily_claimed_at INTEGER,
			rob_uses INTEGER NOT NULL DEFAULT 0,
			kill_uses INTEGER NOT NULL DEFAULT 0,
			kills INTEGER NOT NULL DEFAULT 0,
			deaths INTEGER NOT NULL DEFAULT 0,
			robbed_count INTEGER NOT NULL DEFAULT 0,
			dm_enabled INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_balance ON accounts(balance DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_kills ON accounts(kills DESC)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			from_id INTEGER,
			to_id INTEGER,
			amount INTEGER NOT NULL,
			kind TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions(to_id, created_at DESC)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// --- Accounts ---

const accountColumns = `id, balance, tier, is_dead, protected_until, daily_claimed_at,
	rob_uses, kill_uses, kills, deaths, robbed_count, dm_enabled, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var a Account
	var tier string
	var protectedUntil, dailyClaimedAt sql.NullInt64
	var createdAt int64

	err := row.Scan(&a.ID, &a.Balance, &tier, &a.IsDead, &protectedUntil, &dailyClaimedAt,
		&a.RobUses, &a.KillUses, &a.Kills, &a.Deaths, &a.RobbedCount, &a.DMEnabled, &createdAt)
	if err != nil {
		return nil, err
	}

	a.Tier = Tier(tier)
	a.CreatedAt = time.Unix(createdAt, 0)
	if protectedUntil.Valid {
		t := time.Unix(protectedUntil.Int64, 0)
		a.ProtectedUntil = &t
	}
	if dailyClaimedAt.Valid {
		t := time.UnixMilli(dailyClaimedAt.Int64)
		a.DailyClaimedAt = &t
	}
	return &a, nil
}

// Get returns a point-in-time snapshot of an account. It may race with
// concurrent writers and must not feed a write decision on its own.
func (s *Storage) Get(ctx context.Context, id int64) (*Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// CreateIfMissing inserts a zero-balance, alive, unprotected account unless one
// already exists, and returns the stored account either way
func (s *Storage) CreateIfMissing(ctx context.Context, id int64, defaults Defaults) (*Account, error) {
	tier := defaults.Tier
	if tier == "" {
		tier = TierStandard
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, tier, dm_enabled, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, string(tier), defaults.DMEnabled, time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	return s.Get(ctx, id)
}

// SetTier changes the tier of an existing account
func (s *Storage) SetTier(ctx context.Context, id int64, tier Tier) error {
	return s.execOne(ctx, "set tier", `UPDATE accounts SET tier = ? WHERE id = ?`, string(tier), id)
}

// SetDMEnabled records whether the user can receive direct messages
func (s *Storage) SetDMEnabled(ctx context.Context, id int64, enabled bool) error {
	return s.execOne(ctx, "set dm", `UPDATE accounts SET dm_enabled = ? WHERE id = ?`, enabled, id)
}

func (s *Storage) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Balance ---

// Precondition is a predicate over the balance stored at the moment of the write
type Precondition struct {
	min   int64
	bound bool
}

// Always holds for any balance
func Always() Precondition {
	return Precondition{}
}

// AtLeast holds when the stored balance is >= n
func AtLeast(n int64) Precondition {
	return Precondition{min: n, bound: true}
}

// Holds evaluates the predicate against a balance
func (p Precondition) Holds(balance int64) bool {
	return !p.bound || balance >= p.min
}

// floor folds the predicate and the non-negative balance rule into one lower bound
func (p Precondition) floor(delta int64) (int64, bool) {
	floor, bounded := p.min, p.bound
	if delta < 0 && (!bounded || -delta > floor) {
		floor, bounded = -delta, true
	}
	return floor, bounded
}

// ConditionalAdjust adds delta to the balance if the precondition holds for the
// balance stored at write time. Debits are always additionally guarded so the
// balance never goes negative. When the precondition fails nothing is written
// and NewBalance is the balance observed right after.
func (s *Storage) ConditionalAdjust(ctx context.Context, id, delta int64, pre Precondition) (AdjustResult, error) {
	query := `UPDATE accounts SET balance = balance + ? WHERE id = ? RETURNING balance`
	args := []any{delta, id}
	if floor, bounded := pre.floor(delta); bounded {
		query = `UPDATE accounts SET balance = balance + ? WHERE id = ? AND balance >= ? RETURNING balance`
		args = append(args, floor)
	}

	return s.adjust(ctx, "adjust balance", id, query, args...)
}

// ConditionalRobDebit takes amount from a target that, at write time, still has
// the funds, is alive and is not protected
func (s *Storage) ConditionalRobDebit(ctx context.Context, id, amount int64, now time.Time) (AdjustResult, error) {
	return s.adjust(ctx, "rob debit", id,
		`UPDATE accounts SET balance = balance - ?
		 WHERE id = ? AND balance >= ? AND is_dead = 0
		   AND (protected_until IS NULL OR protected_until <= ?)
		 RETURNING balance`,
		amount, id, amount, now.Unix(),
	)
}

// CreditWithStats credits amount and bumps the kill and rob statistics in one write
func (s *Storage) CreditWithStats(ctx context.Context, id, amount int64, kills, robbed int) (int64, error) {
	res, err := s.adjust(ctx, "credit", id,
		`UPDATE accounts SET balance = balance + ?, kills = kills + ?, robbed_count = robbed_count + ?
		 WHERE id = ? RETURNING balance`,
		amount, kills, robbed, id,
	)
	if err != nil {
		return 0, err
	}
	if !res.Applied {
		return 0, ErrNotFound
	}
	return res.NewBalance, nil
}

func (s *Storage) adjust(ctx context.Context, op string, id int64, query string, args ...any) (AdjustResult, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&balance)
	if err == nil {
		return AdjustResult{Applied: true, NewBalance: balance}, nil
	}
	if err != sql.ErrNoRows {
		return AdjustResult{}, fmt.Errorf("%s: %w", op, err)
	}

	a, err := s.Get(ctx, id)
	if err != nil {
		return AdjustResult{}, err
	}
	return AdjustResult{Applied: false, NewBalance: a.Balance}, nil
}
