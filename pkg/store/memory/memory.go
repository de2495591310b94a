// Package memory implements the quest cache and quota in process memory.
// Nothing survives a restart; it backs development runs and tests.
package memory

import (
	"context"
	"time"

	"ainia/pkg/flight"
	"ainia/pkg/quest"
	"ainia/pkg/schema"
)

// DefaultTTL is how long a cached story stays live.
const DefaultTTL = 30 * 24 * time.Hour

type cached struct {
	story     schema.Story
	createdAt time.Time
}

type Cache struct {
	entries *flight.Map[quest.CacheKey, cached]
	now     func() time.Time
}

var _ quest.Cache = (*Cache)(nil)

// NewCache creates a cache. now may be nil.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: flight.NewMap[quest.CacheKey, cached](ttl, now),
		now:     now,
	}
}

func (c *Cache) Get(_ context.Context, key quest.CacheKey) (schema.Story, bool, error) {
	e, ok := c.entries.Get(key)
	return e.story, ok, nil
}

func (c *Cache) Put(_ context.Context, key quest.CacheKey, story schema.Story) error {
	c.entries.SetIfAbsent(key, cached{story: story, createdAt: c.now()})
	return nil
}

func (c *Cache) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	n := c.entries.DeleteFunc(func(_ quest.CacheKey, e cached) bool {
		return e.createdAt.Before(cutoff)
	})
	return int64(n), nil
}

func (c *Cache) Len() int { return c.entries.Len() }

type usageKey struct {
	user string
	day  string
}

// Quota keeps per-day counters. Counters outlive their day by one more day.
type Quota struct {
	counts *flight.Map[usageKey, int]
	now    func() time.Time
}

var _ quest.Quota = (*Quota)(nil)

func NewQuota(now func() time.Time) *Quota {
	if now == nil {
		now = time.Now
	}
	return &Quota{
		counts: flight.NewMap[usageKey, int](48*time.Hour, now),
		now:    now,
	}
}

func (q *Quota) key(userID string) usageKey {
	return usageKey{user: userID, day: quest.Day(q.now())}
}

func (q *Quota) TodayCount(_ context.Context, userID string) (int, error) {
	n, _ := q.counts.Get(q.key(userID))
	return n, nil
}

func (q *Quota) IncrementToday(_ context.Context, userID string) error {
	q.counts.Update(q.key(userID), func(cur int, _ bool) int { return cur + 1 })
	return nil
}
