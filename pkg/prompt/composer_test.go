package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ainia/pkg/lexicon"
	"ainia/pkg/schema"
)

func TestCheckpointTypeFor(t *testing.T) {
	assert.Equal(t, schema.CheckpointCount, CheckpointTypeFor(4))
	assert.Equal(t, schema.CheckpointCount, CheckpointTypeFor(5))
	assert.Equal(t, schema.CheckpointCount, CheckpointTypeFor(6))
	assert.Equal(t, schema.CheckpointCompare, CheckpointTypeFor(7))
	assert.Equal(t, schema.CheckpointCompare, CheckpointTypeFor(9))
	assert.Equal(t, schema.CheckpointCompare, CheckpointTypeFor(12))
}

func TestComposeCheckpointByAge(t *testing.T) {
	c := NewComposer(lexicon.MustDefault())

	young := c.Compose(schema.ThemeSpace, "stars", 5)
	assert.Contains(t, young.User, `"type": "count"`)
	assert.NotContains(t, young.User, `"type": "compare"`)

	older := c.Compose(schema.ThemeSpace, "stars", 9)
	assert.Contains(t, older.User, `"type": "compare"`)
	assert.NotContains(t, older.User, `"type": "count"`)
}

func TestComposeThemeContext(t *testing.T) {
	lex := lexicon.MustDefault()
	c := NewComposer(lex)

	p := c.Compose(schema.ThemeForest, "  acorns  ", 8)
	forest, _ := lex.Theme("Forest")

	assert.Contains(t, p.User, forest.Description)
	for _, name := range forest.Characters {
		assert.Contains(t, p.User, name)
	}
	for _, w := range forest.Vocabulary[:8] {
		assert.Contains(t, p.User, w)
	}
	assert.NotContains(t, p.User, forest.Vocabulary[8]+",", "only the first 8 theme words are offered")
	assert.Contains(t, p.User, `story about "acorns"`)
	assert.Contains(t, p.User, lex.Words(lexicon.OlderVocabulary)[0])
}

func TestComposeAgeBandVocabulary(t *testing.T) {
	lex := lexicon.MustDefault()
	p := NewComposer(lex).Compose(schema.ThemeSpace, "moon", 6)
	young := lex.Words(lexicon.YoungVocabulary)[:12]
	assert.Contains(t, p.User, "Age-appropriate words: "+strings.Join(young, ", "))
}

func TestComposeShapeAndRegister(t *testing.T) {
	p := NewComposer(lexicon.MustDefault()).Compose(schema.ThemeSpace, "comets", 7)

	for _, key := range []string{`"steps"`, `"choices"`, `"checkpoint"`, `"hint"`, `"parent_digest"`, `"home_activity"`} {
		assert.Contains(t, p.User, key)
	}
	assert.Contains(t, p.User, "Return ONLY one JSON object")
	assert.Contains(t, p.User, "exactly 3 pairs of exactly 2 strings")
	assert.Contains(t, p.User, "Remember how we said")

	assert.Contains(t, p.System, "7-YEAR-OLDS")
	assert.Contains(t, p.System, `"energy"`)
	assert.Contains(t, p.System, "NO JARGON")
	assert.True(t, strings.HasPrefix(p.Combined(), p.System))
}

func TestComposeIsDeterministic(t *testing.T) {
	c := NewComposer(lexicon.MustDefault())
	assert.Equal(t, c.Compose(schema.ThemeSpace, "stars", 5), c.Compose(schema.ThemeSpace, "stars", 5))
}
