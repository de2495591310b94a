package quest

import (
	"context"
	"strings"
	"time"

	"ainia/pkg/schema"
)

// CacheKey identifies a cached story. Topic is stored normalised so that
// "  Stars " and "stars" share an entry.
type CacheKey struct {
	UserID string
	Theme  schema.Theme
	Topic  string
}

func NewCacheKey(userID string, theme schema.Theme, topic string) CacheKey {
	return CacheKey{
		UserID: userID,
		Theme:  theme,
		Topic:  strings.ToLower(strings.TrimSpace(topic)),
	}
}

// Cache stores validated stories per user, theme and topic.
type Cache interface {
	// Get returns the live entry for key. Expired entries are misses.
	Get(ctx context.Context, key CacheKey) (schema.Story, bool, error)
	// Put stores story unless a live entry already exists for key.
	Put(ctx context.Context, key CacheKey, story schema.Story) error
	// DeleteOlderThan removes entries created before cutoff and reports how many.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Quota counts successful generations per user per UTC calendar day.
type Quota interface {
	TodayCount(ctx context.Context, userID string) (int, error)
	IncrementToday(ctx context.Context, userID string) error
}

// Day returns the UTC calendar day containing t, formatted yyyy-mm-dd.
func Day(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
