// Package chatclient generates grounded answers from a system prompt and
// a user prompt via an OpenAI-compatible chat completion endpoint, using
// langchaingo so any OpenAI-compatible server (local or hosted) can serve
// the RAG path without a hand-rolled JSON client.
package chatclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// ErrInvalidConfig indicates an unusable Config.
var ErrInvalidConfig = errors.New("chatclient: invalid configuration")

// Config configures a Client.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// Client generates chat completions.
type Client struct {
	llm   llms.Model
	model string
}

// New constructs a Client against an OpenAI-compatible endpoint.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chat model: %w", err)
	}

	return &Client{llm: llm, model: cfg.Model}, nil
}

// Complete sends a system+user message pair and returns the generated
// answer and the model name that produced it. The error is returned to
// the caller rather than swallowed; callers in the RAG path decide how
// to present a failure.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (answer string, model string, err error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := c.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", "", fmt.Errorf("generating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("chat model returned no choices")
	}

	return resp.Choices[0].Content, c.model, nil
}
