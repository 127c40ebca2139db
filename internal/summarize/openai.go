package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI summarizes through the Chat Completions API, so any
// OpenAI-compatible endpoint works via baseURL.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates the strategy. An empty model uses DefaultOpenAIModel.
func NewOpenAI(apiKey, model, baseURL string, opts ...option.RequestOption) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrMissingCredential)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAI{client: openai.NewClient(reqOpts...), model: model}, nil
}

// Name implements Strategy.
func (o *OpenAI) Name() string { return ProviderOpenAI }

// Summarize implements Strategy.
func (o *OpenAI) Summarize(ctx context.Context, entries []Entry, budget int) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(entries, budget)),
		},
		MaxTokens: openai.Int(MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("summarize: openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
