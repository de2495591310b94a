package validate

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/log"

	"ainia/pkg/apierr"
	"ainia/pkg/lexicon"
	"ainia/pkg/schema"
)

// DefaultEducationalThreshold is the minimum educational score a story needs.
const DefaultEducationalThreshold = 2

const (
	reasonLowScore     = "Story needs more educational content. Try asking about the topic in a more specific way."
	reasonCheckpoint   = "Checkpoint question does not test understanding of the topic"
	reasonVague        = "Story uses vague language instead of clear explanations"
	reasonProgression  = "Story does not follow educational progression (what → how → application)"
	topicMentionPoints = 2
)

// Gate runs the lexicon-driven content checks on a parsed story.
type Gate struct {
	lex       *lexicon.Store
	threshold int
	logger    *log.Logger
}

type GateOption func(*Gate)

func WithThreshold(n int) GateOption {
	return func(g *Gate) { g.threshold = n }
}

func WithLogger(l *log.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

func NewGate(lex *lexicon.Store, opts ...GateOption) *Gate {
	g := &Gate{lex: lex}
	for _, opt := range opts {
		opt(g)
	}
	g.threshold = cmp.Or(g.threshold, DefaultEducationalThreshold)
	if g.logger == nil {
		g.logger = log.Default()
	}
	return g
}

// VocabularyText is the text the vocabulary gate inspects: every step followed
// by the checkpoint question.
func VocabularyText(s schema.Story) string {
	return strings.Join(s.Steps, " ") + " " + s.Checkpoint.Question
}

// CheckVocabulary rejects text containing terms too advanced for a child.
// Tiers are scanned from the broadest list to the narrowest, first hit wins.
func (g *Gate) CheckVocabulary(text string, age int) error {
	if term, ok := g.lex.ContainsAny(text, lexicon.BannedComplexity); ok {
		return apierr.Newf(apierr.KindSafety,
			"Content contains advanced vocabulary %q inappropriate for age %d. Please use simpler language.", term, age)
	}
	if term, ok := g.lex.ContainsAny(text, lexicon.ScientificPhrases); ok {
		return apierr.Newf(apierr.KindSafety,
			"Content contains complex scientific phrase %q inappropriate for age %d. Use simple everyday words instead.", term, age)
	}
	if term, ok := g.lex.ContainsAny(text, lexicon.ScientificWords); ok {
		return apierr.Newf(apierr.KindSafety,
			"Content contains scientific term %q too advanced for age %d. Explain using familiar objects and activities instead.", term, age)
	}
	return nil
}

// Score is the breakdown behind an educational verdict.
type Score struct {
	Explains     bool
	Analogy      bool
	RealWorld    bool
	TopicMention bool
}

func (s Score) Total() int {
	total := 0
	for _, hit := range []bool{s.Explains, s.Analogy, s.RealWorld} {
		if hit {
			total++
		}
	}
	if s.TopicMention {
		total += topicMentionPoints
	}
	return total
}

// Score rates how well the steps teach topic.
func (g *Gate) Score(s schema.Story, topic string) Score {
	steps := strings.ToLower(strings.Join(s.Steps, " "))
	topic = strings.ToLower(strings.TrimSpace(topic))

	_, explains := g.lex.ContainsAny(steps, lexicon.ExplanatoryMarkers)
	_, analogy := g.lex.ContainsAny(steps, lexicon.AnalogyMarkers)
	_, realWorld := g.lex.ContainsAny(steps, lexicon.ConnectionMarkers)

	return Score{
		Explains:     explains,
		Analogy:      analogy,
		RealWorld:    realWorld,
		TopicMention: mentionsTopic(s.Steps, topic),
	}
}

func mentionsTopic(steps []string, topic string) bool {
	if topic == "" {
		return false
	}
	first := strings.Fields(topic)[0]
	for _, step := range steps {
		ls := strings.ToLower(step)
		if strings.Contains(ls, topic) || strings.Contains(ls, first) {
			return true
		}
	}
	return false
}

func questionTestsTopic(question, topic string) bool {
	q := strings.ToLower(question)
	if topic != "" && strings.Contains(q, topic) {
		return true
	}
	for _, w := range strings.Fields(topic) {
		if len([]rune(w)) > 3 && strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// CheckEducational applies the pedagogical heuristics in a fixed order:
// score threshold, checkpoint relevance, vague language, then progression.
func (g *Gate) CheckEducational(s schema.Story, topic string) error {
	topic = strings.ToLower(strings.TrimSpace(topic))
	score := g.Score(s, topic)

	if !score.TopicMention {
		g.logger.Warn("topic not directly mentioned, continuing", "topic", topic)
	}
	if score.Total() < g.threshold {
		return apierr.New(apierr.KindEducational, reasonLowScore, nil)
	}

	if !questionTestsTopic(s.Checkpoint.Question, topic) {
		return apierr.New(apierr.KindEducational, reasonCheckpoint, nil)
	}

	steps := strings.ToLower(strings.Join(s.Steps, " "))
	if phrase, ok := g.lex.ContainsAny(steps, lexicon.VaguePhrases); ok {
		g.logger.Debug("vague phrase in story", "phrase", phrase)
		return apierr.New(apierr.KindEducational, reasonVague, nil)
	}

	if !g.progresses(s) {
		return apierr.New(apierr.KindEducational, reasonProgression, nil)
	}
	return nil
}

func (g *Gate) progresses(s schema.Story) bool {
	if len(s.Steps) < 2 {
		return false
	}
	_, defines := g.lex.ContainsAny(s.Steps[0], lexicon.DefinitionMarkers)
	_, explains := g.lex.ContainsAny(s.Steps[1], lexicon.CausalMarkers)
	return defines && explains
}
