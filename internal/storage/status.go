package storage

import (
	"context"
	"fmt"
	"time"
)

// --- Status ---

// SetDead marks an alive account dead and counts the death. It reports false
// when the account was already dead.
func (s *Storage) SetDead(ctx context.Context, id int64) (bool, error) {
	return s.toggle(ctx, "set dead",
		`UPDATE accounts SET is_dead = 1, deaths = deaths + 1 WHERE id = ? AND is_dead = 0`, id)
}

// SetAlive revives a dead account. It reports false when the account was alive.
func (s *Storage) SetAlive(ctx context.Context, id int64) (bool, error) {
	return s.toggle(ctx, "set alive",
		`UPDATE accounts SET is_dead = 0 WHERE id = ? AND is_dead = 1`, id)
}

func (s *Storage) toggle(ctx context.Context, op, query string, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// SetProtection overwrites the protection expiry
func (s *Storage) SetProtection(ctx context.Context, id int64, until time.Time) error {
	return s.execOne(ctx, "set protection",
		`UPDATE accounts SET protected_until = ? WHERE id = ?`, until.Unix(), id)
}

// ClaimDaily credits reward and stamps the claim time in one write, provided
// the previous claim is at least window old. The stamp is kept in Unix
// milliseconds.
func (s *Storage) ClaimDaily(ctx context.Context, id, reward int64, now time.Time, window time.Duration) (AdjustResult, error) {
	return s.adjust(ctx, "claim daily", id,
		`UPDATE accounts SET balance = balance + ?, daily_claimed_at = ?
		 WHERE id = ? AND (daily_claimed_at IS NULL OR daily_claimed_at <= ?)
		 RETURNING balance`,
		reward, now.UnixMilli(), id, now.Add(-window).UnixMilli(),
	)
}

// --- Usage counters ---

func usageColumn(action Action) (string, error) {
	switch action {
	case ActionRob:
		return "rob_uses", nil
	case ActionKill:
		return "kill_uses", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAction, action)
}

// ReserveUse increments the usage counter of action if it is below limit
func (s *Storage) ReserveUse(ctx context.Context, id int64, action Action, limit int) (bool, error) {
	col, err := usageColumn(action)
	if err != nil {
		return false, err
	}

	return s.toggle(ctx, "reserve "+string(action),
		fmt.Sprintf(`UPDATE accounts SET %[1]s = %[1]s + 1 WHERE id = ? AND %[1]s < %[2]d`, col, limit), id)
}

// ReleaseUse gives back a reservation whose action did not complete
func (s *Storage) ReleaseUse(ctx context.Context, id int64, action Action) error {
	col, err := usageColumn(action)
	if err != nil {
		return err
	}

	_, err = s.toggle(ctx, "release "+string(action),
		fmt.Sprintf(`UPDATE accounts SET %[1]s = %[1]s - 1 WHERE id = ? AND %[1]s > 0`, col), id)
	return err
}

// ResetUsage zeroes the rob and kill counters of every account and returns how
// many accounts had something to reset
func (s *Storage) ResetUsage(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET rob_uses = 0, kill_uses = 0 WHERE rob_uses > 0 OR kill_uses > 0`)
	if err != nil {
		return 0, fmt.Errorf("reset usage: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
