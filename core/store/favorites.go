package store

import (
	"context"
	"fmt"
)

// AddFavorite stores a bookmark. Duplicates are allowed.
func (s *Store) AddFavorite(ctx context.Context, userID int64, kind Kind, text string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO favorites (user_id, kind, text, created_at) VALUES (?, ?, ?, ?)`),
		userID, string(kind), text, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("store: add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite deletes every favorite of the user whose text matches exactly and
// reports how many rows went away. Zero matches is not an error.
func (s *Store) RemoveFavorite(ctx context.Context, userID int64, text string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM favorites WHERE user_id = ? AND text = ?`), userID, text)
	if err != nil {
		return 0, fmt.Errorf("store: remove favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: remove favorite: rows affected: %w", err)
	}
	return n, nil
}

// ListFavorites returns the user's favorites, newest first.
func (s *Store) ListFavorites(ctx context.Context, userID int64) ([]FavoriteRecord, error) {
	var out []FavoriteRecord
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT id, user_id, kind, text, created_at
		FROM favorites
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("store: list favorites: %w", err)
	}
	return out, nil
}
