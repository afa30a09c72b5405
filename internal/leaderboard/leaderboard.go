// Package leaderboard serves the read-only reports over the ledger
package leaderboard

import (
	"context"
	"fmt"

	"github.com/suspectuso/econ-bot/internal/storage"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Source is the ledger read API the reports need
type Source interface {
	TopByBalance(ctx context.Context, limit int) ([]storage.Account, error)
	TopByKills(ctx context.Context, limit int) ([]storage.Account, error)
	RecentTransactions(ctx context.Context, id int64, limit int) ([]storage.Transaction, error)
	TotalBalance(ctx context.Context) (int64, error)
}

// Entry is one ranked line
type Entry struct {
	Rank      int
	AccountID int64
	Value     int64
	Premium   bool
}

// View builds reports
type View struct {
	src Source
}

// New creates a view over src
func New(src Source) *View {
	return &View{src: src}
}

// Clamp normalizes a requested row count
func Clamp(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// TopRich ranks accounts by balance
func (v *View) TopRich(ctx context.Context, limit int) ([]Entry, error) {
	accounts, err := v.src.TopByBalance(ctx, Clamp(limit))
	if err != nil {
		return nil, fmt.Errorf("top rich: %w", err)
	}
	return rank(accounts, func(a storage.Account) int64 { return a.Balance }), nil
}

// TopKillers ranks accounts by kills
func (v *View) TopKillers(ctx context.Context, limit int) ([]Entry, error) {
	accounts, err := v.src.TopByKills(ctx, Clamp(limit))
	if err != nil {
		return nil, fmt.Errorf("top killers: %w", err)
	}
	return rank(accounts, func(a storage.Account) int64 { return int64(a.Kills) }), nil
}

// History returns the latest transactions touching id
func (v *View) History(ctx context.Context, id int64, limit int) ([]storage.Transaction, error) {
	return v.src.RecentTransactions(ctx, id, Clamp(limit))
}

// Supply is the sum of all balances
func (v *View) Supply(ctx context.Context) (int64, error) {
	return v.src.TotalBalance(ctx)
}

func rank(accounts []storage.Account, value func(storage.Account) int64) []Entry {
	entries := make([]Entry, 0, len(accounts))
	for i, a := range accounts {
		entries = append(entries, Entry{
			Rank:      i + 1,
			AccountID: a.ID,
			Value:     value(a),
			Premium:   a.IsPremium(),
		})
	}
	return entries
}
