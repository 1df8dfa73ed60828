package completion_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/service/completion"
)

func newRequest() model.CompletionRequest {
	return model.CompletionRequest{
		Model:        "gpt-4o-mini",
		SystemPrompt: "system",
		UserPrompt:   "user",
		MaxTokens:    100,
		Temperature:  0.2,
	}
}

func TestOpenAI(t *testing.T) {
	t.Run("sends a JSON object request and returns the content", func(t *testing.T) {
		var received map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gt.Value(t, r.URL.Path).Equal("/chat/completions")
			gt.Value(t, r.Header.Get("Authorization")).Equal("Bearer test-key")
			gt.NoError(t, json.NewDecoder(r.Body).Decode(&received)).Required()

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "cmpl-1",
				"object": "chat.completion",
				"model": "gpt-4o-mini",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"summary\":\"ok\"}"}, "finish_reason": "stop"}]
			}`))
		}))
		defer srv.Close()

		client := completion.NewOpenAI("test-key", completion.WithBaseURL(srv.URL))
		gt.Bool(t, client.Available()).True()

		out, err := client.Complete(context.Background(), newRequest())
		gt.NoError(t, err).Required()
		gt.Value(t, out).Equal(`{"summary":"ok"}`)

		gt.Value(t, received["model"]).Equal("gpt-4o-mini")
		gt.Value(t, received["max_tokens"]).Equal(float64(100))
		format, ok := received["response_format"].(map[string]any)
		gt.Bool(t, ok).True()
		gt.Value(t, format["type"]).Equal("json_object")

		messages, ok := received["messages"].([]any)
		gt.Bool(t, ok).True()
		gt.Array(t, messages).Length(2)
	})

	t.Run("empty choices are an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
		}))
		defer srv.Close()

		client := completion.NewOpenAI("test-key", completion.WithBaseURL(srv.URL))
		_, err := client.Complete(context.Background(), newRequest())
		gt.Bool(t, errors.Is(err, completion.ErrEmptyResponse)).True()
	})

	t.Run("server errors are returned", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
		}))
		defer srv.Close()

		client := completion.NewOpenAI("test-key", completion.WithBaseURL(srv.URL))
		_, err := client.Complete(context.Background(), newRequest())
		gt.Value(t, err).NotNil()
	})

	t.Run("missing key is unavailable without network", func(t *testing.T) {
		client := completion.NewOpenAI("", completion.WithBaseURL("http://127.0.0.1:1"))
		gt.Bool(t, client.Available()).False()

		_, err := client.Complete(context.Background(), newRequest())
		gt.Bool(t, errors.Is(err, completion.ErrUnavailable)).True()
	})
}

type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.generateContentFn(ctx, input...)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type mockLLMClient struct {
	newSessionFn func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return c.newSessionFn(ctx, options...)
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func TestGollem(t *testing.T) {
	t.Run("returns the generated text", func(t *testing.T) {
		var prompt string
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
						if text, ok := input[0].(gollem.Text); ok {
							prompt = string(text)
						}
						return &gollem.Response{Texts: []string{`{"is_relevant":`, `true}`}}, nil
					},
				}, nil
			},
		}

		client := completion.NewGollem(llm)
		gt.Bool(t, client.Available()).True()

		out, err := client.Complete(context.Background(), newRequest())
		gt.NoError(t, err).Required()
		gt.Value(t, out).Equal(`{"is_relevant":true}`)
		gt.Value(t, prompt).Equal("user")
	})

	t.Run("no text is an error", func(t *testing.T) {
		llm := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
						return &gollem.Response{}, nil
					},
				}, nil
			},
		}

		_, err := completion.NewGollem(llm).Complete(context.Background(), newRequest())
		gt.Bool(t, errors.Is(err, completion.ErrEmptyResponse)).True()
	})

	t.Run("nil client is unavailable", func(t *testing.T) {
		client := completion.NewGollem(nil)
		gt.Bool(t, client.Available()).False()
		_, err := client.Complete(context.Background(), newRequest())
		gt.Bool(t, errors.Is(err, completion.ErrUnavailable)).True()
	})
}

func TestUnavailable(t *testing.T) {
	var client completion.Unavailable
	gt.Bool(t, client.Available()).False()
	_, err := client.Complete(context.Background(), newRequest())
	gt.Bool(t, errors.Is(err, completion.ErrUnavailable)).True()
}
