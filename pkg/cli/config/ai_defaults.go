package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// AIDefaults points at an optional TOML file overriding the bundled AI
// configurations, e.g.
//
//	[[config]]
//	use_case = "PROJECT_SUMMARY"
//	model = "gpt-4o"
//	user_prompt_template = "..."
type AIDefaults struct {
	path string
}

type aiDefaultsFile struct {
	Configs []aiDefaultEntry `toml:"config"`
}

type aiDefaultEntry struct {
	UseCase            string   `toml:"use_case"`
	Model              string   `toml:"model"`
	SystemPrompt       string   `toml:"system_prompt"`
	UserPromptTemplate string   `toml:"user_prompt_template"`
	MaxTokens          *int     `toml:"max_tokens"`
	Temperature        *float64 `toml:"temperature"`
	Description        string   `toml:"description"`
}

func (x *AIDefaults) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "ai-config-defaults",
			Usage:       "TOML file overriding the bundled AI configurations",
			Category:    "LLM",
			Sources:     cli.EnvVars("NOTEFLOW_AI_CONFIG_DEFAULTS"),
			Destination: &x.path,
		},
	}
}

// Configure loads the overrides. Without a path it returns nil, which keeps
// the bundled defaults.
func (x *AIDefaults) Configure() (map[types.UseCase]model.AIConfig, error) {
	if x.path == "" {
		return nil, nil
	}
	return LoadAIDefaults(x.path)
}

// LoadAIDefaults reads overrides from path on top of the bundled defaults.
// Unset fields keep the bundled value; every result is validated like a
// configuration created through the API.
func LoadAIDefaults(path string) (map[types.UseCase]model.AIConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read ai config defaults", goerr.V(ConfigPathKey, path))
	}

	var file aiDefaultsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML", goerr.V(ConfigPathKey, path), goerr.V("cause", err.Error()))
	}

	defaults := model.BundledAIConfigs()
	seen := make(map[types.UseCase]struct{}, len(file.Configs))
	for i, entry := range file.Configs {
		u, err := types.ParseUseCase(entry.UseCase)
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidConfig, "unknown use case",
				goerr.V(ConfigPathKey, path), goerr.V("index", i), goerr.V("use_case", entry.UseCase))
		}
		if _, ok := seen[u]; ok {
			return nil, goerr.Wrap(ErrInvalidConfig, "duplicate use case",
				goerr.V(ConfigPathKey, path), goerr.V("use_case", u))
		}
		seen[u] = struct{}{}

		cfg := defaults[u]
		if entry.Model != "" {
			cfg.Model = entry.Model
		}
		if entry.SystemPrompt != "" {
			cfg.SystemPrompt = entry.SystemPrompt
		}
		if entry.UserPromptTemplate != "" {
			cfg.UserPromptTemplate = entry.UserPromptTemplate
		}
		if entry.MaxTokens != nil {
			cfg.MaxTokens = *entry.MaxTokens
		}
		if entry.Temperature != nil {
			cfg.Temperature = *entry.Temperature
		}
		if entry.Description != "" {
			cfg.Description = entry.Description
		}

		if err := usecase.ValidateConfig(&cfg); err != nil {
			return nil, goerr.Wrap(err, "invalid ai config override",
				goerr.V(ConfigPathKey, path), goerr.V("use_case", u))
		}
		defaults[u] = cfg
	}

	return defaults, nil
}
