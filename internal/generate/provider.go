package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/jpl-au/cellrev/internal/config"
)

// EnvAPIKey overrides the provider's own key variable.
const EnvAPIKey = "CELLREV_API_KEY"

// Provider completes a prompt into text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

func (f ProviderFunc) Name() string { return "func" }

func (f ProviderFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Default models when none is configured.
const (
	defaultAnthropicModel = "claude-sonnet-4-5"
	defaultOpenAIModel    = "gpt-4o-mini"
)

var keyVars = map[string][]string{
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
}

// APIKey returns the key for a provider from the environment.
func APIKey(provider string) (string, error) {
	if k := strings.TrimSpace(os.Getenv(EnvAPIKey)); k != "" {
		return k, nil
	}
	for _, name := range keyVars[provider] {
		if k := strings.TrimSpace(os.Getenv(name)); k != "" {
			return k, nil
		}
	}
	vars := append([]string{EnvAPIKey}, keyVars[provider]...)
	return "", fmt.Errorf("%w: set %s", ErrNoAPIKey, strings.Join(vars, " or "))
}

// NewProvider builds the configured provider.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	name := cfg.Provider()
	key, err := APIKey(name)
	if err != nil {
		return nil, err
	}
	model := cfg.Model()
	maxTokens := cfg.MaxTokens()

	switch name {
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return &gemini{client: client, model: model, maxTokens: maxTokens}, nil
	case "anthropic":
		if model == "" {
			model = defaultAnthropicModel
		}
		client := anthropic.NewClient(anthropicopt.WithAPIKey(key))
		return &claude{client: client, model: model, maxTokens: maxTokens}, nil
	case "openai":
		if model == "" {
			model = defaultOpenAIModel
		}
		opts := []openaiopt.RequestOption{openaiopt.WithAPIKey(key)}
		if cfg.Generator.BaseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(cfg.Generator.BaseURL))
		}
		return &chat{client: openai.NewClient(opts...), model: model, maxTokens: maxTokens}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

type gemini struct {
	client    *genai.Client
	model     string
	maxTokens int
}

func (g *gemini) Name() string { return "gemini" }

func (g *gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt),
		&genai.GenerateContentConfig{MaxOutputTokens: int32(g.maxTokens)})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

type claude struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

func (c *claude) Name() string { return "anthropic" }

func (c *claude) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

type chat struct {
	client    openai.Client
	model     string
	maxTokens int
}

func (c *chat) Name() string { return "openai" }

func (c *chat) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(c.model),
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
