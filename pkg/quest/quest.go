// Package quest runs one story request end to end: input checks, topic
// screening, cache and quota, generation with a single retry, and the
// vocabulary and educational gates.
package quest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/segmentio/ksuid"

	"ainia/pkg/apierr"
	"ainia/pkg/inference"
	"ainia/pkg/lexicon"
	"ainia/pkg/prompt"
	"ainia/pkg/safety"
	"ainia/pkg/schema"
	"ainia/pkg/validate"
)

type Config struct {
	DailyLimit           int `yaml:"daily_limit"`
	MaxAttempts          int `yaml:"max_attempts"`
	EducationalThreshold int `yaml:"educational_threshold"`
}

func DefaultConfig() Config {
	return Config{
		DailyLimit:           20,
		MaxAttempts:          2,
		EducationalThreshold: validate.DefaultEducationalThreshold,
	}
}

type Request struct {
	UserID string `json:"user_id"`
	Theme  string `json:"theme"`
	Topic  string `json:"topic"`
	Age    int    `json:"age"`
}

// Result is a validated story. It serialises as the story fields plus "cached".
type Result struct {
	schema.Story
	Cached   bool `json:"cached"`
	Attempts int  `json:"-"`
}

type Usage struct {
	Count     int `json:"count"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

type Deps struct {
	Lexicon   *lexicon.Store
	Generator inference.Generator
	Cache     Cache
	Quota     Quota
	Logger    *log.Logger
}

type Pipeline struct {
	screener *safety.Screener
	composer *prompt.Composer
	gate     *validate.Gate
	gen      inference.Generator
	cache    Cache
	quota    Quota
	cfg      Config
	logger   *log.Logger
}

func New(deps Deps, cfg Config) (*Pipeline, error) {
	switch {
	case deps.Lexicon == nil:
		return nil, errors.New("quest: lexicon is required")
	case deps.Generator == nil:
		return nil, errors.New("quest: generator is required")
	case deps.Cache == nil:
		return nil, errors.New("quest: cache is required")
	case deps.Quota == nil:
		return nil, errors.New("quest: quota is required")
	}

	def := DefaultConfig()
	cfg.DailyLimit = cmp.Or(cfg.DailyLimit, def.DailyLimit)
	cfg.MaxAttempts = cmp.Or(cfg.MaxAttempts, def.MaxAttempts)
	cfg.EducationalThreshold = cmp.Or(cfg.EducationalThreshold, def.EducationalThreshold)
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("quest: max attempts must be positive, got %d", cfg.MaxAttempts)
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Pipeline{
		screener: safety.NewScreener(deps.Lexicon),
		composer: prompt.NewComposer(deps.Lexicon),
		gate:     validate.NewGate(deps.Lexicon, validate.WithThreshold(cfg.EducationalThreshold), validate.WithLogger(logger)),
		gen:      deps.Generator,
		cache:    deps.Cache,
		quota:    deps.Quota,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

func (p *Pipeline) Config() Config { return p.cfg }

type requestIDKey struct{}

// WithRequestID attaches an id the pipeline logs instead of minting its own.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return ksuid.New().String()
}

// GenerateStory returns a cached or freshly generated story for req.
// On any error no story is returned and neither cache nor quota is touched.
func (p *Pipeline) GenerateStory(ctx context.Context, req Request) (Result, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	t := &tracker{
		logger: p.logger.With("request", requestID(ctx), "user", req.UserID),
		state:  Admitted,
	}
	t.logger.Info("story requested", "theme", req.Theme, "topic", req.Topic, "age", req.Age)

	theme, err := p.admit(req)
	if err != nil {
		t.to(Rejected, "error", err)
		return Result{}, err
	}
	topic := strings.TrimSpace(req.Topic)
	key := NewCacheKey(req.UserID, theme, topic)

	// Cache read failures are treated as a miss.
	story, hit, err := p.cache.Get(ctx, key)
	if err != nil {
		t.logger.Warn("cache lookup failed, continuing without cache", "error", err)
		hit = false
	}
	if hit {
		t.to(Done, "cached", true)
		return Result{Story: story, Cached: true}, nil
	}

	// Quota read failures count as zero usage.
	used, err := p.quota.TodayCount(ctx, req.UserID)
	if err != nil {
		t.logger.Warn("usage lookup failed, continuing", "error", err)
		used = 0
	}
	if used >= p.cfg.DailyLimit {
		err := apierr.Newf(apierr.KindQuota, "Daily limit of %d stories reached. Try again tomorrow!", p.cfg.DailyLimit)
		t.to(Rejected, "used", used, "limit", p.cfg.DailyLimit)
		return Result{}, err
	}

	story, attempts, err := p.generate(ctx, t, theme, topic, req.Age)
	if err != nil {
		t.to(Rejected, "attempts", attempts, "error", err)
		return Result{}, err
	}

	// Persisting is best-effort; failures are logged and swallowed.
	if err := p.cache.Put(ctx, key, story); err != nil {
		t.logger.Warn("failed to cache story", "error", err)
	}
	if err := p.quota.IncrementToday(ctx, req.UserID); err != nil {
		t.logger.Warn("failed to update usage", "error", err)
	}

	t.to(Done, "attempts", attempts)
	return Result{Story: story, Attempts: attempts}, nil
}

// admit runs every check that must pass before cache, quota or generation.
func (p *Pipeline) admit(req Request) (schema.Theme, error) {
	if err := safety.ValidateUser(req.UserID); err != nil {
		return "", err
	}
	theme, err := safety.ValidateTheme(req.Theme)
	if err != nil {
		return "", err
	}
	if err := safety.ValidateTopic(req.Topic); err != nil {
		return "", err
	}
	if err := p.screener.Check(req.Topic); err != nil {
		return "", err
	}
	if err := safety.ValidateAge(req.Age); err != nil {
		return "", err
	}
	return theme, nil
}

func (p *Pipeline) generate(ctx context.Context, t *tracker, theme schema.Theme, topic string, age int) (schema.Story, int, error) {
	var lastErr error
	attempt := 1
	for ; attempt <= p.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			t.to(Retrying, "attempt", attempt, "error", lastErr)
		}

		story, err := p.attempt(ctx, t, theme, topic, age)
		if err == nil {
			return story, attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if e, ok := apierr.As(err); !ok || !e.Retryable() {
			break
		}
	}
	return schema.Story{}, min(attempt, p.cfg.MaxAttempts), lastErr
}

func (p *Pipeline) attempt(ctx context.Context, t *tracker, theme schema.Theme, topic string, age int) (schema.Story, error) {
	t.to(Generating, "generator", p.gen.Name())
	text := p.composer.Compose(theme, topic, age)

	start := time.Now()
	raw, err := p.gen.Generate(ctx, text)
	if err != nil {
		return schema.Story{}, err
	}

	t.to(Validating, "elapsed", time.Since(start).Round(time.Millisecond))
	story, err := validate.Parse(raw)
	if err != nil {
		t.logger.Debug("raw output", "output", raw)
		return schema.Story{}, err
	}
	if err := validate.CheckCheckpointType(story, age); err != nil {
		return schema.Story{}, err
	}
	if err := p.gate.CheckVocabulary(validate.VocabularyText(story), age); err != nil {
		t.logger.Debug("vocabulary rejected", "text", validate.VocabularyText(story))
		return schema.Story{}, err
	}
	if err := p.gate.CheckEducational(story, topic); err != nil {
		return schema.Story{}, err
	}
	return story, nil
}

// Screen runs the topic checks without generating anything.
func (p *Pipeline) Screen(topic string) (safety.Verdict, error) {
	if err := safety.ValidateTopic(topic); err != nil {
		return safety.Verdict{}, err
	}
	return p.screener.Screen(topic), nil
}

// Usage reports today's generation count for userID. Read failures count as zero.
func (p *Pipeline) Usage(ctx context.Context, userID string) (Usage, error) {
	userID = strings.TrimSpace(userID)
	if err := safety.ValidateUser(userID); err != nil {
		return Usage{}, err
	}
	used, err := p.quota.TodayCount(ctx, userID)
	if err != nil {
		p.logger.Warn("usage lookup failed", "user", userID, "error", err)
		used = 0
	}
	return Usage{
		Count:     used,
		Limit:     p.cfg.DailyLimit,
		Remaining: max(p.cfg.DailyLimit-used, 0),
	}, nil
}

// Expire removes cached stories created before cutoff.
func (p *Pipeline) Expire(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := p.cache.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire cached stories: %w", err)
	}
	p.logger.Info("expired cached stories", "removed", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	return n, nil
}
