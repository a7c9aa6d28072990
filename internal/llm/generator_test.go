package llm

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetdocs/triage/internal/config"
	"github.com/vetdocs/triage/pkg/anthropic"
	"github.com/vetdocs/triage/pkg/perplexity"
)

type fakeAnthropicClient struct {
	lastReq anthropic.MessageRequest
	resp    *anthropic.MessageResponse
	err     error
}

func (f *fakeAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

type fakePerplexityClient struct {
	lastReq perplexity.ChatCompletionRequest
	resp    *perplexity.ChatCompletionResponse
	err     error
}

func (f *fakePerplexityClient) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func TestNewGenerator(t *testing.T) {
	t.Run("anthropic", func(t *testing.T) {
		gen, err := NewGenerator(&config.Config{
			LLM:       config.LLMConfig{Provider: "anthropic"},
			Anthropic: config.AnthropicConfig{Key: "key", Model: "claude-haiku-4-5-20251001"},
		})
		require.NoError(t, err)
		assert.IsType(t, &AnthropicGenerator{}, gen)
	})

	t.Run("default is anthropic", func(t *testing.T) {
		gen, err := NewGenerator(&config.Config{
			Anthropic: config.AnthropicConfig{Key: "key"},
		})
		require.NoError(t, err)
		assert.IsType(t, &AnthropicGenerator{}, gen)
	})

	t.Run("anthropic missing key", func(t *testing.T) {
		_, err := NewGenerator(&config.Config{
			LLM: config.LLMConfig{Provider: "anthropic"},
		})
		assert.ErrorContains(t, err, "anthropic.key")
	})

	t.Run("perplexity", func(t *testing.T) {
		gen, err := NewGenerator(&config.Config{
			LLM:        config.LLMConfig{Provider: "perplexity"},
			Perplexity: config.PerplexityConfig{Key: "key"},
		})
		require.NoError(t, err)
		assert.IsType(t, &PerplexityGenerator{}, gen)
	})

	t.Run("perplexity missing key", func(t *testing.T) {
		_, err := NewGenerator(&config.Config{
			LLM: config.LLMConfig{Provider: "perplexity"},
		})
		assert.ErrorContains(t, err, "perplexity.key")
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewGenerator(&config.Config{
			LLM: config.LLMConfig{Provider: "openai"},
		})
		assert.ErrorContains(t, err, "unknown provider")
	})
}

func TestAnthropicGenerate(t *testing.T) {
	client := &fakeAnthropicClient{
		resp: &anthropic.MessageResponse{Text: `{"category": "rdl"}`},
	}
	g := &AnthropicGenerator{Client: client, Model: "claude-haiku-4-5-20251001"}

	text, err := g.Generate(context.Background(), "classify this", GenerateParams{
		MaxTokens:   500,
		Temperature: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"category": "rdl"}`, text)
	assert.Equal(t, "claude-haiku-4-5-20251001", client.lastReq.Model)
	assert.Equal(t, int64(500), client.lastReq.MaxTokens)
	assert.Equal(t, "classify this", client.lastReq.Prompt)
	require.NotNil(t, client.lastReq.Temperature)
	assert.Equal(t, 0.1, *client.lastReq.Temperature)
}

func TestAnthropicGenerateModelOverride(t *testing.T) {
	client := &fakeAnthropicClient{resp: &anthropic.MessageResponse{Text: "ok"}}
	g := &AnthropicGenerator{Client: client, Model: "default-model"}

	_, err := g.Generate(context.Background(), "prompt", GenerateParams{Model: "override-model"})
	require.NoError(t, err)
	assert.Equal(t, "override-model", client.lastReq.Model)
}

func TestAnthropicGenerateError(t *testing.T) {
	client := &fakeAnthropicClient{err: eris.New("api down")}
	g := &AnthropicGenerator{Client: client}

	_, err := g.Generate(context.Background(), "prompt", GenerateParams{})
	assert.ErrorContains(t, err, "anthropic generate")
}

func TestPerplexityGenerate(t *testing.T) {
	client := &fakePerplexityClient{
		resp: &perplexity.ChatCompletionResponse{
			Choices: []perplexity.Choice{
				{Message: perplexity.Message{Role: "assistant", Content: "answer"}},
			},
		},
	}
	g := &PerplexityGenerator{Client: client, Model: "sonar-pro"}

	text, err := g.Generate(context.Background(), "classify this", GenerateParams{MaxTokens: 400})
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
	assert.Equal(t, "sonar-pro", client.lastReq.Model)
	require.Len(t, client.lastReq.Messages, 1)
	assert.Equal(t, "user", client.lastReq.Messages[0].Role)
	require.NotNil(t, client.lastReq.MaxTokens)
	assert.Equal(t, 400, *client.lastReq.MaxTokens)
}

func TestPerplexityGenerateNoChoices(t *testing.T) {
	client := &fakePerplexityClient{resp: &perplexity.ChatCompletionResponse{}}
	g := &PerplexityGenerator{Client: client}

	_, err := g.Generate(context.Background(), "prompt", GenerateParams{})
	assert.ErrorContains(t, err, "no choices")
}
