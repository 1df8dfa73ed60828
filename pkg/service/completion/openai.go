package completion

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
)

// OpenAI calls an OpenAI compatible chat completion endpoint and always asks
// for a JSON object response.
type OpenAI struct {
	apiKey  string
	baseURL string
	client  *openai.Client
}

var _ interfaces.CompletionClient = &OpenAI{}

// OpenAIOption configures OpenAI
type OpenAIOption func(*OpenAI)

// WithBaseURL points the client at a compatible endpoint
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAI) {
		c.baseURL = url
	}
}

// NewOpenAI creates the client. An empty apiKey yields a client that reports
// itself unavailable.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	c := &OpenAI{apiKey: apiKey}
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	c.client = openai.NewClientWithConfig(cfg)
	return c
}

func (c *OpenAI) Available() bool {
	return c.apiKey != ""
}

func (c *OpenAI) Complete(ctx context.Context, req model.CompletionRequest) (string, error) {
	if !c.Available() {
		return "", goerr.Wrap(ErrUnavailable, "openai api key is not set", goerr.V("model", req.Model))
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create chat completion", goerr.V("model", req.Model))
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", goerr.Wrap(ErrEmptyResponse, "chat completion returned no content", goerr.V("model", req.Model))
	}
	return resp.Choices[0].Message.Content, nil
}
