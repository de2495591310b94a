package inference

import (
	"context"
	"errors"
	"fmt"

	"ainia/pkg/apierr"
	"ainia/pkg/prompt"
)

// Generator sends one composed prompt to a text model and returns its raw text.
// Each call issues exactly one upstream request.
type Generator interface {
	Generate(ctx context.Context, p prompt.Text) (string, error)
	Name() string
}

var (
	ErrServiceUnavailable = errors.New("generation service unavailable")
	ErrSafetyBlocked      = errors.New("output blocked by safety filters")
	ErrEmptyResponse      = errors.New("no text in generation response")
)

// Params are the sampling settings sent with every request.
type Params struct {
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
	TopK            float32 `yaml:"top_k"`
	TopP            float32 `yaml:"top_p"`
}

func DefaultParams() Params {
	return Params{
		Temperature:     0.6,
		MaxOutputTokens: 1500,
		TopK:            40,
		TopP:            0.8,
	}
}

func unavailable(err error) error {
	return apierr.New(apierr.KindService, "Story service is unavailable right now. Please try again.", errors.Join(ErrServiceUnavailable, err))
}

// blocked is the provider's own safety filter firing. It ends the request.
func blocked(detail string) error {
	return &apierr.Error{
		Kind:   apierr.KindSafety,
		Reason: "Content blocked by safety filters. Please try a different topic.",
		Err:    errors.Join(ErrSafetyBlocked, errors.New(detail)),
		Final:  true,
	}
}

func empty() error {
	return apierr.New(apierr.KindService, "No response from the story service.", ErrEmptyResponse)
}

// New builds the generator for kind: "gemini" or any OpenAI-compatible preset.
func New(ctx context.Context, kind, apiKey, model, baseURL string, params Params) (Generator, error) {
	switch {
	case kind == "gemini":
		return NewGeminiGenerator(ctx, apiKey, model, baseURL, params)
	case IsOpenAICompatible(kind):
		return NewOpenAIGenerator(kind, apiKey, model, baseURL, params)
	default:
		return nil, fmt.Errorf("unknown provider %q", kind)
	}
}
