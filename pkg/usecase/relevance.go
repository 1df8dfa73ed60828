package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
)

// RelevanceInput asks whether one note concerns one project
type RelevanceInput struct {
	NoteContent        string
	ProjectName        string
	ProjectDescription string
	ProjectHierarchy   []model.ProjectHierarchyEntry
	UserID             string
	Version            *int
}

// RelevanceExtractor decides whether a note is relevant to a project and
// extracts the relevant part.
type RelevanceExtractor struct {
	configs    *AIConfigUseCase
	completion interfaces.CompletionClient
}

func NewRelevanceExtractor(configs *AIConfigUseCase, completion interfaces.CompletionClient) *RelevanceExtractor {
	return &RelevanceExtractor{configs: configs, completion: completion}
}

func (x *RelevanceExtractor) ExtractRelevance(ctx context.Context, in RelevanceInput) (*model.RelevanceExtraction, error) {
	cfg, err := x.configs.Resolve(ctx, types.UseCaseRelevanceExtraction, in.Version)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load relevance config")
	}

	hierarchy := in.ProjectHierarchy
	if hierarchy == nil {
		hierarchy = []model.ProjectHierarchyEntry{}
	}

	obj, err := completeJSON(ctx, x.completion, cfg, map[string]string{
		"project_name":        in.ProjectName,
		"project_description": in.ProjectDescription,
		"note_content":        in.NoteContent,
		"project_hierarchy":   mustJSON(hierarchy),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "relevance extraction failed", goerr.V("project", in.ProjectName))
	}

	var result model.RelevanceExtraction
	if err := requireKey(obj, "is_relevant", &result.IsRelevant); err != nil {
		return nil, goerr.Wrap(err, "invalid relevance response", goerr.V("project", in.ProjectName))
	}
	if err := requireKey(obj, "extracted_content", &result.ExtractedContent); err != nil {
		return nil, goerr.Wrap(err, "invalid relevance response", goerr.V("project", in.ProjectName))
	}
	if raw, ok := obj["annotation"]; ok && string(raw) != "null" {
		if err := requireKey(obj, "annotation", &result.Annotation); err != nil {
			// non-string annotations are kept as their JSON text
			logging.From(ctx).Debug("relevance annotation is not a string",
				"project", in.ProjectName, "error", err)
			result.Annotation = string(raw)
		}
	}

	return &result, nil
}
