package inference

import (
	"cmp"
	"context"
	"fmt"

	"google.golang.org/genai"

	"ainia/pkg/prompt"
)

type GeminiGenerator struct {
	client *genai.Client
	model  string
	params Params
}

var strictSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
}

// NewGeminiGenerator creates a generator backed by the Gemini API.
// baseURL is optional and only needed for proxies and tests.
func NewGeminiGenerator(ctx context.Context, apiKey, model, baseURL string, params Params) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{
		client: client,
		model:  cmp.Or(model, "gemini-2.0-flash"),
		params: params,
	}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini/" + g.model }

// Generate issues a single GenerateContent call and returns the first candidate's text.
func (g *GeminiGenerator) Generate(ctx context.Context, p prompt.Text) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		Temperature:       genai.Ptr(g.params.Temperature),
		TopK:              genai.Ptr(g.params.TopK),
		TopP:              genai.Ptr(g.params.TopP),
		CandidateCount:    1,
		MaxOutputTokens:   cmp.Or(g.params.MaxOutputTokens, 1500),
		ResponseMIMEType:  "application/json",
		SafetySettings:    strictSafety,
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.User), config)
	if err != nil {
		return "", unavailable(fmt.Errorf("gemini generate content: %w", err))
	}

	if fb := result.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", blocked("prompt blocked: " + string(fb.BlockReason))
	}
	if len(result.Candidates) == 0 || result.Candidates[0] == nil {
		return "", empty()
	}

	first := result.Candidates[0]
	if first.FinishReason == genai.FinishReasonSafety {
		return "", blocked("candidate finish reason " + string(first.FinishReason))
	}
	if first.Content == nil {
		return "", empty()
	}

	var text string
	for _, part := range first.Content.Parts {
		if part != nil && !part.Thought {
			text += part.Text
		}
	}
	if text == "" {
		return "", empty()
	}
	return text, nil
}
