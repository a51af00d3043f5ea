package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used for every completion.
const DefaultModel = anthropic.ModelClaude3_7SonnetLatest

// ErrClientNotInitialised is returned when attempting to call the API without a configured client.
var ErrClientNotInitialised = errors.New("anthropic client not initialised")

const (
	requestTimeout = 30 * time.Second
	maxTokens      = 512
)

// Client wraps the Anthropic SDK for single-prompt completions.
type Client struct {
	client *anthropic.Client
	model  anthropic.Model
}

// New returns an Anthropic client. Without an apiKey every call fails with ErrClientNotInitialised.
func New(apiKey string, opts ...option.RequestOption) *Client {
	if apiKey == "" {
		return &Client{}
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	c := anthropic.NewClient(opts...)
	return &Client{
		client: &c,
		model:  DefaultModel,
	}
}

// Complete sends prompt as a single user message and returns the concatenated text blocks.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	if c.client == nil {
		return "", ErrClientNotInitialised
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content received")
	}
	return strings.TrimSpace(sb.String()), nil
}
