// Package sqlite persists cached stories and daily usage in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"ainia/pkg/quest"
	"ainia/pkg/schema"
)

// DefaultTTL is how long a cached story stays live.
const DefaultTTL = 30 * 24 * time.Hour

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cache_entries (
	user_id TEXT NOT NULL,
	theme TEXT NOT NULL,
	topic TEXT NOT NULL,
	response_json TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, theme, topic)
);
CREATE INDEX IF NOT EXISTS idx_cache_created ON cache_entries(created_at);

CREATE TABLE IF NOT EXISTS usage_records (
	user_id TEXT NOT NULL,
	day TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	last_activity INTEGER NOT NULL,
	PRIMARY KEY (user_id, day)
);
`

// Store implements quest.Cache and quest.Quota on one database.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64
}

var (
	_ quest.Cache = (*Store)(nil)
	_ quest.Quota = (*Store)(nil)
)

type Option func(*Store)

func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates or migrates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open story db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate story db: %w", err)
	}

	s := &Store{db: db, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// liveAfter is the oldest created_at that is still live.
func (s *Store) liveAfter() int64 {
	return s.now().Add(-s.ttl).Unix()
}

func (s *Store) Get(ctx context.Context, key quest.CacheKey) (schema.Story, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT response_json FROM cache_entries
		 WHERE user_id = ? AND theme = ? AND topic = ? AND created_at > ?`,
		key.UserID, string(key.Theme), key.Topic, s.liveAfter(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		s.misses.Add(1)
		return schema.Story{}, false, nil
	}
	if err != nil {
		return schema.Story{}, false, fmt.Errorf("cache get: %w", err)
	}

	var story schema.Story
	if err := json.Unmarshal([]byte(raw), &story); err != nil {
		s.misses.Add(1)
		return schema.Story{}, false, fmt.Errorf("cache decode: %w", err)
	}
	s.hits.Add(1)
	return story, true, nil
}

// Put inserts story, or replaces an expired row. A live row is left untouched.
func (s *Store) Put(ctx context.Context, key quest.CacheKey, story schema.Story) error {
	data, err := json.Marshal(story)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (user_id, theme, topic, response_json, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, theme, topic) DO UPDATE
		 SET response_json = excluded.response_json, created_at = excluded.created_at
		 WHERE cache_entries.created_at <= ?`,
		key.UserID, string(key.Theme), key.Topic, string(data), s.now().Unix(), s.liveAfter(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("cache delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache delete: %w", err)
	}
	return n, nil
}

type Stats struct {
	Entries int64 `json:"entries"`
	Live    int64 `json:"live"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Stats reports row counts and this process's hit/miss counters.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN created_at > ? THEN 1 ELSE 0 END), 0) FROM cache_entries`,
		s.liveAfter(),
	).Scan(&st.Entries, &st.Live)
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	st.Hits = s.hits.Load()
	st.Misses = s.misses.Load()
	return st, nil
}

func (s *Store) TodayCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM usage_records WHERE user_id = ? AND day = ?`,
		userID, quest.Day(s.now()),
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("usage get: %w", err)
	}
	return n, nil
}

func (s *Store) IncrementToday(ctx context.Context, userID string) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records (user_id, day, count, last_activity)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT (user_id, day) DO UPDATE
		 SET count = usage_records.count + 1, last_activity = excluded.last_activity`,
		userID, quest.Day(now), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("usage increment: %w", err)
	}
	return nil
}
