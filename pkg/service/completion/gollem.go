package completion

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
)

// Gollem adapts a gollem.LLMClient. The model and sampling parameters are
// fixed when the LLM client is built, so Model, MaxTokens and Temperature of
// the request are only logged by callers.
type Gollem struct {
	llm gollem.LLMClient
}

var _ interfaces.CompletionClient = &Gollem{}

// NewGollem wraps llm. A nil llm yields an unavailable client.
func NewGollem(llm gollem.LLMClient) *Gollem {
	return &Gollem{llm: llm}
}

func (c *Gollem) Available() bool {
	return c.llm != nil
}

func (c *Gollem) Complete(ctx context.Context, req model.CompletionRequest) (string, error) {
	if !c.Available() {
		return "", goerr.Wrap(ErrUnavailable, "llm client is not set", goerr.V("model", req.Model))
	}

	session, err := c.llm.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionSystemPrompt(req.SystemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(req.UserPrompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content from LLM")
	}
	if len(resp.Texts) == 0 {
		return "", goerr.Wrap(ErrEmptyResponse, "LLM returned no text")
	}
	return strings.Join(resp.Texts, ""), nil
}
