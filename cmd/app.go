package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"ainia/pkg/config"
	"ainia/pkg/inference"
	"ainia/pkg/lexicon"
	"ainia/pkg/quest"
	"ainia/pkg/store/memory"
	"ainia/pkg/store/redis"
	"ainia/pkg/store/sqlite"
)

// stores is the cache and quota backing selected by config.
type stores struct {
	cache quest.Cache
	quota quest.Quota
	db    *sqlite.Store // nil unless the sqlite driver is in use

	closers []func() error
}

func openStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*stores, error) {
	s := &stores{}

	switch cfg.Store.Driver {
	case "memory":
		s.cache = memory.NewCache(cfg.Store.CacheTTL, nil)
		s.quota = memory.NewQuota(nil)
	default:
		db, err := sqlite.Open(cfg.Store.DBPath, sqlite.WithTTL(cfg.Store.CacheTTL))
		if err != nil {
			return nil, err
		}
		s.db = db
		s.cache, s.quota = db, db
		s.closers = append(s.closers, db.Close)
	}

	if cfg.Store.RedisAddr != "" {
		q, err := redis.Dial(ctx, cfg.Store.RedisAddr)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.quota = q
		s.closers = append(s.closers, q.Close)
		logger.Info("daily quota kept in redis", "addr", cfg.Store.RedisAddr)
	}
	return s, nil
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

type app struct {
	cfg      *config.Config
	logger   *log.Logger
	lexicon  *lexicon.Store
	stores   *stores
	pipeline *quest.Pipeline
}

// newApp wires the full pipeline. Callers must Close the result.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger()

	lex, err := lexicon.Load(cfg.LexiconPath)
	if err != nil {
		return nil, err
	}
	gen, err := inference.New(ctx, cfg.Provider.Kind, cfg.Provider.APIKey, cfg.Provider.Model, cfg.Provider.BaseURL, cfg.Provider.Params)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", cfg.Provider.Kind, err)
	}
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	p, err := quest.New(quest.Deps{
		Lexicon:   lex,
		Generator: gen,
		Cache:     st.cache,
		Quota:     st.quota,
		Logger:    logger.WithPrefix("quest"),
	}, cfg.Pipeline)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	logger.Debug("pipeline ready",
		"provider", cfg.Provider.Kind,
		"lexicon", lex.Version(),
		"store", cfg.Store.Driver,
		"daily_limit", p.Config().DailyLimit,
	)
	return &app{cfg: cfg, logger: logger, lexicon: lex, stores: st, pipeline: p}, nil
}

func (a *app) Close() error { return a.stores.Close() }
