package types

import (
	"fmt"
	"regexp"
	"slices"
	"sort"

	"github.com/m-mizutani/goerr/v2"
)

// UseCase identifies which LLM stage an AI configuration drives.
type UseCase string

const (
	UseCaseProjectSummary      UseCase = "PROJECT_SUMMARY"
	UseCaseRelevanceExtraction UseCase = "RELEVANCE_EXTRACTION"
	UseCaseActionManagement    UseCase = "ACTION_MANAGEMENT"
	UseCaseProjectTagging      UseCase = "PROJECT_TAGGING"
)

// AllUseCases returns all valid use cases
func AllUseCases() []UseCase {
	return []UseCase{
		UseCaseProjectSummary,
		UseCaseRelevanceExtraction,
		UseCaseActionManagement,
		UseCaseProjectTagging,
	}
}

// IsValid checks if the use case is valid
func (u UseCase) IsValid() bool {
	_, ok := useCaseInfos[u]
	return ok
}

func (u UseCase) String() string {
	return string(u)
}

// ParseUseCase parses a string into a UseCase
func ParseUseCase(s string) (UseCase, error) {
	u := UseCase(s)
	if !u.IsValid() {
		return "", fmt.Errorf("invalid use case: %s", s)
	}
	return u, nil
}

// UseCaseInfo is the static metadata of a use case: the placeholders a
// template may use, the instruction appended to every rendered prompt and a
// human readable description per placeholder.
type UseCaseInfo struct {
	ExpectedParams     []string
	ResponseFormatText string
	Descriptions       map[string]string
}

var useCaseInfos = map[UseCase]UseCaseInfo{
	UseCaseProjectSummary: {
		ExpectedParams:     []string{"project_name", "project_description", "current_summary", "extracted_content"},
		ResponseFormatText: "Respond with a JSON object with a single key \"summary\" whose value is the updated project summary in markdown.",
		Descriptions: map[string]string{
			"project_name":        "Name of the project",
			"project_description": "Description of the project",
			"current_summary":     "Summary currently stored on the project",
			"extracted_content":   "Content extracted from the note for this project",
		},
	},
	UseCaseRelevanceExtraction: {
		ExpectedParams:     []string{"project_name", "project_description", "note_content", "project_hierarchy"},
		ResponseFormatText: "Respond with a JSON object with keys \"is_relevant\" (boolean), \"extracted_content\" (string, the relevant part of the note) and \"annotation\" (string, why it is relevant).",
		Descriptions: map[string]string{
			"project_name":        "Name of the candidate project",
			"project_description": "Description of the candidate project",
			"note_content":        "Full text of the note",
			"project_hierarchy":   "JSON array of the direct sub-projects with name and description",
		},
	},
	UseCaseActionManagement: {
		ExpectedParams:     []string{"note_content", "existing_action_items", "current_date"},
		ResponseFormatText: "Respond with a JSON object with key \"action_items\": an array of objects with \"action\" (new, update or complete), \"id\" (required for update and complete), \"task\", \"doer\", \"deadline\", \"theme\", \"context\", \"extracted_entities\" (object of category to list of strings) and \"type\" (task, reminder or decision_point).",
		Descriptions: map[string]string{
			"note_content":          "Full text of the note",
			"existing_action_items": "JSON array of the user's open action items",
			"current_date":          "Today's date in YYYY-MM-DD",
		},
	},
	UseCaseProjectTagging: {
		ExpectedParams:     []string{"action_items", "projects"},
		ResponseFormatText: "Respond with a JSON object with key \"project_mappings\": an object mapping each action item id to an array of project ids.",
		Descriptions: map[string]string{
			"action_items": "JSON array of the user's action items",
			"projects":     "JSON array of the user's projects",
		},
	},
}

// Info returns the static metadata of the use case.
func (u UseCase) Info() (UseCaseInfo, bool) {
	info, ok := useCaseInfos[u]
	return info, ok
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholders returns the distinct placeholder names used in template, sorted.
func Placeholders(template string) []string {
	seen := map[string]struct{}{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		seen[m[1]] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateTemplate checks that template references only placeholders from
// the expected parameter list of the use case.
func (u UseCase) ValidateTemplate(template string) error {
	info, ok := useCaseInfos[u]
	if !ok {
		return goerr.New("invalid use case", goerr.V("use_case", u))
	}

	var unknown []string
	for _, name := range Placeholders(template) {
		if !slices.Contains(info.ExpectedParams, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return goerr.New("template references unknown placeholders",
			goerr.V("use_case", u),
			goerr.V("unknown", unknown),
			goerr.V("expected", info.ExpectedParams))
	}
	return nil
}

// Render substitutes each {name} placeholder with params[name]. Placeholders
// without a value are left untouched.
func Render(template string, params map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := params[name]; ok {
			return v
		}
		return m
	})
}
