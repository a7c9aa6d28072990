// Package llm abstracts the text-generation backends used by the classifier.
// The pipeline depends only on the TextGenerator capability, never on a
// specific provider.
package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/vetdocs/triage/internal/config"
	"github.com/vetdocs/triage/pkg/anthropic"
	"github.com/vetdocs/triage/pkg/perplexity"
)

// GenerateParams bounds a single generation request.
type GenerateParams struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// TextGenerator produces a text completion for a prompt. Implementations
// must honor ctx cancellation and return an error rather than blocking
// indefinitely.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, params GenerateParams) (string, error)
}

// NewGenerator builds a TextGenerator from config.
func NewGenerator(cfg *config.Config) (TextGenerator, error) {
	switch cfg.LLM.Provider {
	case "anthropic", "":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("llm: anthropic provider requires anthropic.key")
		}
		client := anthropic.NewClient(cfg.Anthropic.Key, anthropic.WithRateLimit(cfg.LLM.RateRPS))
		return &AnthropicGenerator{Client: client, Model: cfg.Anthropic.Model}, nil
	case "perplexity":
		if cfg.Perplexity.Key == "" {
			return nil, eris.New("llm: perplexity provider requires perplexity.key")
		}
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		return &PerplexityGenerator{Client: client, Model: cfg.Perplexity.Model}, nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}
}

// AnthropicGenerator adapts pkg/anthropic to the TextGenerator capability.
type AnthropicGenerator struct {
	Client anthropic.Client
	Model  string
}

func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string, params GenerateParams) (string, error) {
	model := params.Model
	if model == "" {
		model = g.Model
	}

	temp := params.Temperature
	resp, err := g.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       model,
		MaxTokens:   params.MaxTokens,
		Prompt:      prompt,
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: anthropic generate")
	}
	return resp.Text, nil
}

// PerplexityGenerator adapts pkg/perplexity to the TextGenerator capability.
type PerplexityGenerator struct {
	Client perplexity.Client
	Model  string
}

func (g *PerplexityGenerator) Generate(ctx context.Context, prompt string, params GenerateParams) (string, error) {
	model := params.Model
	if model == "" {
		model = g.Model
	}

	temp := params.Temperature
	maxTokens := int(params.MaxTokens)
	resp, err := g.Client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model:       model,
		Messages:    []perplexity.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: perplexity generate")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("llm: perplexity returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
