package model

import (
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

// AIConfig is one immutable version of the prompt and model parameters of a
// use case. Only IsActive changes after creation.
type AIConfig struct {
	UseCase            types.UseCase `json:"use_case"`
	Version            int           `json:"version"`
	Model              string        `json:"model"`
	SystemPrompt       string        `json:"system_prompt"`
	UserPromptTemplate string        `json:"user_prompt_template"`
	MaxTokens          int           `json:"max_tokens"`
	Temperature        float64       `json:"temperature"`
	Description        string        `json:"description"`
	CreatedAt          time.Time     `json:"created_at"`
	IsActive           bool          `json:"is_active"`
}

// DocID is the storage key of the config: "{use_case}_v{version}".
func (c *AIConfig) DocID() string {
	return AIConfigDocID(c.UseCase, c.Version)
}

// AIConfigDocID builds the storage key of a config version.
func AIConfigDocID(useCase types.UseCase, version int) string {
	return fmt.Sprintf("%s_v%d", useCase, version)
}

// Validate checks the fields a caller supplies on creation.
func (c *AIConfig) Validate() error {
	if !c.UseCase.IsValid() {
		return goerr.New("invalid use case", goerr.V("use_case", c.UseCase))
	}
	if c.Model == "" {
		return goerr.New("model is required", goerr.V("use_case", c.UseCase))
	}
	if c.UserPromptTemplate == "" {
		return goerr.New("user prompt template is required", goerr.V("use_case", c.UseCase))
	}
	if c.MaxTokens < 0 {
		return goerr.New("max_tokens must not be negative", goerr.V("max_tokens", c.MaxTokens))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return goerr.New("temperature must be between 0 and 2", goerr.V("temperature", c.Temperature))
	}
	return c.UseCase.ValidateTemplate(c.UserPromptTemplate)
}

// DefaultModel is used by bundled configurations.
const DefaultModel = "gpt-4o-mini"

var defaultAIConfigs = map[types.UseCase]AIConfig{
	types.UseCaseProjectSummary: {
		Model:       DefaultModel,
		MaxTokens:   2000,
		Temperature: 0.3,
		Description: "Bundled default for project summary merging",
		SystemPrompt: "You maintain concise, well structured markdown summaries of personal projects. " +
			"Merge new information into the existing summary without losing facts that are still valid.",
		UserPromptTemplate: "Project: {project_name}\nDescription: {project_description}\n\n" +
			"Current summary:\n{current_summary}\n\nNew information:\n{extracted_content}\n\n" +
			"Produce the updated summary.",
	},
	types.UseCaseRelevanceExtraction: {
		Model:       DefaultModel,
		MaxTokens:   1500,
		Temperature: 0.1,
		Description: "Bundled default for note relevance extraction",
		SystemPrompt: "You decide whether a personal note contains information relevant to a project " +
			"and extract only the relevant part.",
		UserPromptTemplate: "Project: {project_name}\nDescription: {project_description}\n" +
			"Sub-projects: {project_hierarchy}\n\nNote:\n{note_content}",
	},
	types.UseCaseActionManagement: {
		Model:       DefaultModel,
		MaxTokens:   2000,
		Temperature: 0.2,
		Description: "Bundled default for action item management",
		SystemPrompt: "You manage a personal to-do list. From a note, identify new action items, " +
			"updates to existing ones and items the note shows as done.",
		UserPromptTemplate: "Today is {current_date}.\n\nOpen action items:\n{existing_action_items}\n\n" +
			"Note:\n{note_content}",
	},
	types.UseCaseProjectTagging: {
		Model:       DefaultModel,
		MaxTokens:   3000,
		Temperature: 0.1,
		Description: "Bundled default for action item project tagging",
		SystemPrompt: "You assign action items to the projects they belong to. " +
			"Only use project ids from the given list. An item may belong to several projects.",
		UserPromptTemplate: "Projects:\n{projects}\n\nAction items:\n{action_items}",
	},
}

// BundledAIConfigs returns a fresh copy of the configurations shipped with
// the binary, keyed by use case. Version, CreatedAt and IsActive are left to
// the store.
func BundledAIConfigs() map[types.UseCase]AIConfig {
	out := make(map[types.UseCase]AIConfig, len(defaultAIConfigs))
	for u, cfg := range defaultAIConfigs {
		cfg.UseCase = u
		out[u] = cfg
	}
	return out
}
