package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/refbot/core/logger"
)

// AppendInteraction records a history row and bumps the user's counters in one transaction.
func (s *Store) AppendInteraction(ctx context.Context, userID int64, displayName string, kind Kind, text string) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: append interaction: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.timestamp()
	if _, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO query_history (user_id, display_name, kind, text, created_at) VALUES (?, ?, ?, ?, ?)`),
		userID, displayName, string(kind), text, now,
	); err != nil {
		return fmt.Errorf("store: append interaction: insert history: %w", err)
	}

	var wiki, translate int64
	switch kind {
	case KindWiki:
		wiki = 1
	case KindTranslate:
		translate = 1
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO user_stats (user_id, display_name, total_queries, wiki_queries, translate_queries, last_active_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name      = excluded.display_name,
			total_queries     = user_stats.total_queries + 1,
			wiki_queries      = user_stats.wiki_queries + excluded.wiki_queries,
			translate_queries = user_stats.translate_queries + excluded.translate_queries,
			last_active_at    = excluded.last_active_at`),
		userID, displayName, wiki, translate, now,
	); err != nil {
		return fmt.Errorf("store: append interaction: upsert stats: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: append interaction: commit: %w", err)
	}

	logger.DB.Debug("interaction stored",
		slog.String("event", "store.append"),
		slog.Int64("user_id", userID),
		slog.String("kind", string(kind)),
	)
	return nil
}

// ListHistory returns up to limit history rows of the user, newest first.
func (s *Store) ListHistory(ctx context.Context, userID int64, limit int) ([]InteractionRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	var out []InteractionRecord
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT id, user_id, display_name, kind, text, created_at
		FROM query_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list history: %w", err)
	}
	return out, nil
}

// ClearHistory deletes every history row of the user. Stats and favorites are kept.
func (s *Store) ClearHistory(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM query_history WHERE user_id = ?`), userID)
	if err != nil {
		return 0, fmt.Errorf("store: clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: clear history: rows affected: %w", err)
	}
	return n, nil
}

// PopularQueries ranks distinct history texts across all users by count, ties broken by text.
func (s *Store) PopularQueries(ctx context.Context, limit int) ([]PopularQuery, error) {
	if limit <= 0 {
		return nil, nil
	}
	var out []PopularQuery
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT text, COUNT(*) AS hits
		FROM query_history
		GROUP BY text
		ORDER BY hits DESC, text ASC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("store: popular queries: %w", err)
	}
	return out, nil
}

// KindCounts returns the number of history rows per kind.
func (s *Store) KindCounts(ctx context.Context) ([]KindCount, error) {
	var out []KindCount
	err := s.db.SelectContext(ctx, &out, `
		SELECT kind, COUNT(*) AS total
		FROM query_history
		GROUP BY kind
		ORDER BY total DESC, kind ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: kind counts: %w", err)
	}
	return out, nil
}
