// Package store persists interaction history, favorites and per-user aggregate stats.
package store

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Kind classifies a recorded interaction.
type Kind string

const (
	KindWiki      Kind = "wiki"
	KindTranslate Kind = "translate"
	KindComplaint Kind = "complaint"
	KindGeneral   Kind = "general"
)

// InteractionRecord is one row of query history.
type InteractionRecord struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	DisplayName string    `db:"display_name"`
	Kind        Kind      `db:"kind"`
	Text        string    `db:"text"`
	CreatedAt   time.Time `db:"created_at"`
}

// FavoriteRecord is a text a user bookmarked.
type FavoriteRecord struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Kind      Kind      `db:"kind"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

// UserStats aggregates interaction counters for a single user.
type UserStats struct {
	UserID           int64     `db:"user_id"`
	DisplayName      string    `db:"display_name"`
	TotalQueries     int64     `db:"total_queries"`
	WikiQueries      int64     `db:"wiki_queries"`
	TranslateQueries int64     `db:"translate_queries"`
	LastActiveAt     time.Time `db:"last_active_at"`
}

// PopularQuery is a distinct history text with its occurrence count.
type PopularQuery struct {
	Text string `db:"text"`
	Hits int64  `db:"hits"`
}

// KindCount is the number of history rows recorded for a kind.
type KindCount struct {
	Kind  Kind  `db:"kind"`
	Count int64 `db:"total"`
}

// Store implements data access on top of a sqlx pool. It holds no business rules.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source used for created_at and last_active_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New wraps an open database handle.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}
