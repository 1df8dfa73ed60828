package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

// buildPrompt renders the template of cfg and appends the response format
// instruction of its use case.
func buildPrompt(cfg *model.AIConfig, params map[string]string) string {
	prompt := types.Render(cfg.UserPromptTemplate, params)
	if info, ok := cfg.UseCase.Info(); ok && info.ResponseFormatText != "" {
		prompt += "\n\n" + info.ResponseFormatText
	}
	return prompt
}

// completeJSON sends one completion built from cfg and returns the top level
// keys of the JSON object reply.
func completeJSON(ctx context.Context, client interfaces.CompletionClient, cfg *model.AIConfig, params map[string]string) (map[string]json.RawMessage, error) {
	raw, err := client.Complete(ctx, model.CompletionRequest{
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		UserPrompt:   buildPrompt(cfg, params),
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "completion failed",
			goerr.V(UseCaseKey, cfg.UseCase), goerr.V(VersionKey, cfg.Version))
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimJSON(raw)), &obj); err != nil {
		return nil, goerr.Wrap(ErrMalformedResponse, err.Error(),
			goerr.V(UseCaseKey, cfg.UseCase), goerr.V("response", raw))
	}
	return obj, nil
}

// trimJSON strips a markdown code fence some models put around the object.
func trimJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// requireKey decodes obj[key] into v. A missing key is ErrMissingResponseKey.
func requireKey(obj map[string]json.RawMessage, key string, v any) error {
	raw, ok := obj[key]
	if !ok || string(raw) == "null" {
		return goerr.Wrap(ErrMissingResponseKey, "response key is missing", goerr.V("key", key))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return goerr.Wrap(ErrMalformedResponse, err.Error(), goerr.V("key", key))
	}
	return nil
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}
