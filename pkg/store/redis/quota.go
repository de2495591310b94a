// Package redis keeps the daily usage counters in Redis so several server
// instances share one quota.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ainia/pkg/quest"
)

const (
	DefaultPrefix = "ainia:usage"

	// counterTTL outlives the UTC day a counter belongs to.
	counterTTL = 48 * time.Hour
)

type Quota struct {
	rdb    *goredis.Client
	prefix string
	now    func() time.Time
}

var _ quest.Quota = (*Quota)(nil)

type Option func(*Quota)

func WithPrefix(p string) Option {
	return func(q *Quota) { q.prefix = strings.TrimSuffix(p, ":") }
}

func WithClock(now func() time.Time) Option {
	return func(q *Quota) { q.now = now }
}

// Dial connects to addr and verifies the server answers.
func Dial(ctx context.Context, addr string, opts ...Option) (*Quota, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, opts...), nil
}

// New wraps an existing client.
func New(rdb *goredis.Client, opts ...Option) *Quota {
	q := &Quota{rdb: rdb, prefix: DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Quota) Close() error { return q.rdb.Close() }

// Key is the counter key for userID on the current UTC day.
func (q *Quota) Key(userID string) string {
	return q.prefix + ":" + userID + ":" + quest.Day(q.now())
}

func (q *Quota) TodayCount(ctx context.Context, userID string) (int, error) {
	n, err := q.rdb.Get(ctx, q.Key(userID)).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("usage get: %w", err)
	}
	return n, nil
}

func (q *Quota) IncrementToday(ctx context.Context, userID string) error {
	key := q.Key(userID)
	_, err := q.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Incr(ctx, key)
		p.Expire(ctx, key, counterTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("usage increment: %w", err)
	}
	return nil
}
