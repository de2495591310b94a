package validate

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ainia/pkg/apierr"
	"ainia/pkg/lexicon"
	"ainia/pkg/schema"
)

func goodStory() schema.Story {
	return schema.Story{
		Steps: []string{
			"Wow! Stars are like giant night lights far away in the sky.",
			"Remember how we said stars are far away? They shine bright because they are super hot like a campfire.",
			"Now you know stars are hot and far away! When you look up at night, you can see them twinkle.",
		},
		Choices: [][]string{
			{"Keep exploring!", "Tell me more!"},
			{"Show me more cool stuff!", "Let's play with this idea!"},
			{"I want to try this!", "Share with my friends!"},
		},
		Checkpoint: schema.Checkpoint{
			Question: "Which stars look bigger, close ones or far ones?",
			Expected: "Close ones",
			Type:     schema.CheckpointCompare,
		},
		Hint: "Stars are far away campfires!",
		ParentDigest: schema.ParentDigest{
			Skills:       []string{"Curiosity about stars"},
			Note:         "Your child learned why stars twinkle today.",
			HomeActivity: "Go stargazing together tonight.",
		},
	}
}

func encode(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func requireViolation(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrMalformedOutput)
	var sv *SchemaViolationError
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, field, sv.Field)
	assert.Contains(t, apierr.ReasonOf(err), field)
}

func TestParseValid(t *testing.T) {
	want := goodStory()
	got, err := Parse(encode(t, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseStripsFencesAndThinking(t *testing.T) {
	raw := "<think>the child is nine, keep it simple</think>\n```json\n" + encode(t, goodStory()) + "\n```"
	got, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, goodStory(), got)
}

func TestParseMalformed(t *testing.T) {
	for _, raw := range []string{"", "not json at all", `{"steps": [`, "```json\n```", `{"steps": []} trailing`} {
		_, err := Parse(raw)
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, apierr.ErrMalformedOutput)
		var mj *MalformedJSONError
		assert.ErrorAs(t, err, &mj, raw)
		assert.Equal(t, "Invalid response format from AI. Please try again.", apierr.ReasonOf(err))
	}
}

func TestParseTypeMismatch(t *testing.T) {
	doc := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(encode(t, goodStory())), &doc))
	doc["steps"] = "one long step"

	_, err := Parse(encode(t, doc))
	requireViolation(t, err, "steps")
}

func TestParseNotAnObject(t *testing.T) {
	_, err := Parse(`[1, 2, 3]`)
	requireViolation(t, err, "document")
}

func TestParseStepCount(t *testing.T) {
	for _, n := range []int{0, 2, 4} {
		s := goodStory()
		s.Steps = make([]string, n)
		for i := range s.Steps {
			s.Steps[i] = fmt.Sprintf("Step %d is here", i+1)
		}
		_, err := Parse(encode(t, s))
		requireViolation(t, err, "steps")
	}
}

func TestParseFieldViolations(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*schema.Story)
	}{
		{"steps[1]", func(s *schema.Story) { s.Steps[1] = "   " }},
		{"choices", func(s *schema.Story) { s.Choices = s.Choices[:2] }},
		{"choices[1]", func(s *schema.Story) { s.Choices[1] = []string{"a", "b", "c"} }},
		{"choices[2]", func(s *schema.Story) { s.Choices[2] = []string{"only one"} }},
		{"choices[0][1]", func(s *schema.Story) { s.Choices[0][1] = "" }},
		{"checkpoint.question", func(s *schema.Story) { s.Checkpoint.Question = "Why" }},
		{"checkpoint.expected", func(s *schema.Story) { s.Checkpoint.Expected = "" }},
		{"checkpoint.type", func(s *schema.Story) { s.Checkpoint.Type = "guess" }},
		{"hint", func(s *schema.Story) { s.Hint = "Hi" }},
		{"parent_digest.skills", func(s *schema.Story) { s.ParentDigest.Skills = nil }},
		{"parent_digest.note", func(s *schema.Story) { s.ParentDigest.Note = "Nice." }},
		{"parent_digest.home_activity", func(s *schema.Story) { s.ParentDigest.HomeActivity = "Go" }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			s := goodStory()
			tt.mutate(&s)
			_, err := Parse(encode(t, s))
			requireViolation(t, err, tt.field)
		})
	}
}

func TestParseReportsFirstFailingField(t *testing.T) {
	s := goodStory()
	s.Hint = ""
	s.Choices = nil
	_, err := Parse(encode(t, s))
	requireViolation(t, err, "choices")
}

func TestCheckCheckpointType(t *testing.T) {
	s := goodStory()
	assert.NoError(t, CheckCheckpointType(s, 9))

	err := CheckCheckpointType(s, 5)
	requireViolation(t, err, "checkpoint.type")

	s.Checkpoint.Type = schema.CheckpointCount
	assert.NoError(t, CheckCheckpointType(s, 5))
	assert.Error(t, CheckCheckpointType(s, 7))
}

func newGate(opts ...GateOption) *Gate {
	return NewGate(lexicon.MustDefault(), opts...)
}

func TestVocabularyText(t *testing.T) {
	s := goodStory()
	text := VocabularyText(s)
	assert.Contains(t, text, s.Steps[0]+" "+s.Steps[1])
	assert.Contains(t, text, s.Checkpoint.Question)
	assert.NotContains(t, text, s.Hint)
}

func TestCheckVocabularyClean(t *testing.T) {
	assert.NoError(t, newGate().CheckVocabulary(VocabularyText(goodStory()), 9))
}

func TestCheckVocabularyNuclearFusionAnyAge(t *testing.T) {
	g := newGate()
	for age := schema.MinAge; age <= schema.MaxAge; age++ {
		err := g.CheckVocabulary("Stars glow because of Nuclear Fusion deep inside.", age)
		require.Error(t, err)
		assert.ErrorIs(t, err, apierr.ErrSafety)
		reason := apierr.ReasonOf(err)
		assert.Contains(t, reason, `"nuclear"`)
		assert.Contains(t, reason, fmt.Sprintf("age %d", age))
		assert.Contains(t, reason, "simpler language")
	}
}

func TestCheckVocabularyTiers(t *testing.T) {
	g := newGate()

	err := g.CheckVocabulary("The sun gives off thermal energy.", 8)
	assert.Contains(t, apierr.ReasonOf(err), `scientific phrase "thermal energy"`)

	err = g.CheckVocabulary("Water is made of tiny molecules.", 8)
	assert.Contains(t, apierr.ReasonOf(err), `scientific term "molecules"`)
	assert.Contains(t, apierr.ReasonOf(err), "familiar objects")
}

func TestCheckEducationalPasses(t *testing.T) {
	assert.NoError(t, newGate().CheckEducational(goodStory(), "Stars"))
}

func TestScore(t *testing.T) {
	sc := newGate().Score(goodStory(), "stars")
	assert.True(t, sc.Explains)
	assert.True(t, sc.Analogy)
	assert.True(t, sc.RealWorld)
	assert.True(t, sc.TopicMention)
	assert.Equal(t, 5, sc.Total())
}

func TestCheckEducationalOrder(t *testing.T) {
	tests := []struct {
		name   string
		topic  string
		mutate func(*schema.Story)
		reason string
	}{
		{
			name:  "low score",
			topic: "volcanoes",
			mutate: func(s *schema.Story) {
				s.Steps = []string{"The sky is blue.", "Birds sing how they want.", "Dogs bark."}
				s.Checkpoint.Question = "What did the dogs do?"
			},
			reason: reasonLowScore,
		},
		{
			name:   "checkpoint off topic",
			topic:  "stars",
			mutate: func(s *schema.Story) { s.Checkpoint.Question = "How many birds did we count?" },
			reason: reasonCheckpoint,
		},
		{
			name:   "vague",
			topic:  "stars",
			mutate: func(s *schema.Story) { s.Steps[2] += " It was a magical night." },
			reason: reasonVague,
		},
		{
			name:  "progression",
			topic: "stars",
			mutate: func(s *schema.Story) {
				s.Steps[0] = "Wow! Stars glow so bright up high."
				s.Steps[1] = "They shine bright like a big campfire."
			},
			reason: reasonProgression,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := goodStory()
			tt.mutate(&s)
			err := newGate().CheckEducational(s, tt.topic)
			require.Error(t, err)
			assert.ErrorIs(t, err, apierr.ErrEducational)
			assert.Equal(t, tt.reason, apierr.ReasonOf(err))
		})
	}
}

func TestCheckEducationalTopicWordInQuestion(t *testing.T) {
	s := goodStory()
	s.Checkpoint.Question = "Which twinkle is brighter, near or far?"
	err := newGate().CheckEducational(s, "twinkle stars")
	assert.NoError(t, err)
}

func TestCheckEducationalThreshold(t *testing.T) {
	assert.Error(t, newGate(WithThreshold(6)).CheckEducational(goodStory(), "stars"))
	assert.NoError(t, newGate(WithThreshold(5)).CheckEducational(goodStory(), "stars"))
}
