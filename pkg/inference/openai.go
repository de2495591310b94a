package inference

import (
	"cmp"
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"ainia/pkg/prompt"
	"ainia/pkg/schema"
)

// OpenAIGenerator implements Generator against any OpenAI-compatible chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	params Params
}

// Compatible endpoints that only differ from OpenAI by base URL and default model.
var openAIPresets = map[string]struct{ baseURL, model string }{
	"openai":   {"", "gpt-4o-mini"},
	"grok":     {"https://api.x.ai/v1", "grok-4-fast-reasoning"},
	"kimi":     {"https://api.kimi.com/coding/v1", "kimi-for-coding"},
	"moonshot": {"https://api.moonshot.ai/v1", "kimi-k2-5"},
}

// IsOpenAICompatible reports whether kind names a preset served by OpenAIGenerator.
func IsOpenAICompatible(kind string) bool {
	_, ok := openAIPresets[kind]
	return ok
}

// NewOpenAIGenerator creates a generator for the given preset kind. Empty model
// and baseURL fall back to the preset.
func NewOpenAIGenerator(kind, apiKey, model, baseURL string, params Params) (*OpenAIGenerator, error) {
	preset, ok := openAIPresets[kind]
	if !ok {
		return nil, fmt.Errorf("unknown openai-compatible provider %q", kind)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if u := cmp.Or(baseURL, preset.baseURL); u != "" {
		opts = append(opts, option.WithBaseURL(u))
	}
	client := openai.NewClient(opts...)
	return &OpenAIGenerator{
		client: &client,
		model:  cmp.Or(model, preset.model),
		params: params,
	}, nil
}

func (o *OpenAIGenerator) Name() string { return "openai/" + o.model }

// Generate sends one chat completion request and returns the first choice's content.
func (o *OpenAIGenerator) Generate(ctx context.Context, p prompt.Text) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
		MaxCompletionTokens: openai.Int(int64(cmp.Or(o.params.MaxOutputTokens, 1500))),
		Temperature:         openai.Float(float64(o.params.Temperature)),
		TopP:                openai.Float(float64(cmp.Or(o.params.TopP, 1.0))),
		N:                   openai.Int(1),
		ResponseFormat:      schema.StructuredOutputsResponseFormat(),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", unavailable(fmt.Errorf("openai chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", empty()
	}

	first := resp.Choices[0]
	if first.FinishReason == "content_filter" {
		return "", blocked("finish reason content_filter")
	}
	if first.Message.Refusal != "" {
		return "", blocked("refusal: " + first.Message.Refusal)
	}

	text := first.Message.Content
	if strings.TrimSpace(text) == "" {
		return "", empty()
	}
	return text, nil
}
