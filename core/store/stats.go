package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetStats returns the counters of one user or ErrNotFound.
func (s *Store) GetStats(ctx context.Context, userID int64) (UserStats, error) {
	var st UserStats
	err := s.db.GetContext(ctx, &st, s.db.Rebind(`
		SELECT user_id, display_name, total_queries, wiki_queries, translate_queries, last_active_at
		FROM user_stats
		WHERE user_id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return UserStats{}, ErrNotFound
	}
	if err != nil {
		return UserStats{}, fmt.Errorf("store: get stats: %w", err)
	}
	return st, nil
}

// AllUserStats returns every user's counters, busiest first.
func (s *Store) AllUserStats(ctx context.Context) ([]UserStats, error) {
	var out []UserStats
	err := s.db.SelectContext(ctx, &out, `
		SELECT user_id, display_name, total_queries, wiki_queries, translate_queries, last_active_at
		FROM user_stats
		ORDER BY total_queries DESC, user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: all user stats: %w", err)
	}
	return out, nil
}
