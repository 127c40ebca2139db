package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic summarizes through the Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates the strategy. An empty model uses
// DefaultAnthropicModel; an empty baseURL uses the SDK default.
func NewAnthropic(apiKey, model, baseURL string, opts ...option.RequestOption) (*Anthropic, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrMissingCredential)
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &Anthropic{client: anthropic.NewClient(reqOpts...), model: model}, nil
}

// Name implements Strategy.
func (a *Anthropic) Name() string { return ProviderAnthropic }

// Summarize implements Strategy.
func (a *Anthropic) Summarize(ctx context.Context, entries []Entry, budget int) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(entries, budget))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: anthropic: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok && tb.Text != "" {
			parts = append(parts, tb.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
