package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/service/completion"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// LLM selects and configures the completion backend
type LLM struct {
	provider      string
	openaiAPIKey  string
	openaiBaseURL string
	gemini        Gemini
}

func (x *LLM) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "Language model provider (openai, gemini, none)",
			Category:    "LLM",
			Value:       "openai",
			Sources:     cli.EnvVars("NOTEFLOW_LLM_PROVIDER"),
			Destination: &x.provider,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Category:    "LLM",
			Sources:     cli.EnvVars("NOTEFLOW_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &x.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "Base URL of an OpenAI compatible endpoint",
			Category:    "LLM",
			Sources:     cli.EnvVars("NOTEFLOW_OPENAI_BASE_URL"),
			Destination: &x.openaiBaseURL,
		},
	}
	return append(flags, x.gemini.Flags()...)
}

func (x LLM) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", x.provider),
		slog.Bool("openai_api_key_set", x.openaiAPIKey != ""),
		slog.String("openai_base_url", x.openaiBaseURL),
	)
}

// Configure returns the completion client. The openai provider without a
// key and the none provider yield a client that reports itself unavailable,
// so pipeline stages fail softly.
func (x *LLM) Configure(ctx context.Context) (interfaces.CompletionClient, error) {
	switch x.provider {
	case "openai":
		var opts []completion.OpenAIOption
		if x.openaiBaseURL != "" {
			opts = append(opts, completion.WithBaseURL(x.openaiBaseURL))
		}
		client := completion.NewOpenAI(x.openaiAPIKey, opts...)
		if !client.Available() {
			logging.Default().Warn("OpenAI API key is not configured, LLM stages are disabled")
		}
		return client, nil

	case "gemini":
		client, err := x.gemini.Configure(ctx)
		if err != nil {
			return nil, err
		}
		logging.Default().Info("Using Gemini completion", slog.Any("gemini", x.gemini.LogAttrs()))
		return client, nil

	case "none", "":
		logging.Default().Warn("LLM provider disabled")
		return completion.Unavailable{}, nil

	default:
		return nil, goerr.Wrap(ErrUnknownBackend, "invalid llm provider", goerr.V(BackendKey, x.provider))
	}
}
