package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/utils/errutil"
)

// SummaryMergeErrorPrefix starts the placeholder MergeSummary returns on
// failure. Callers must not store such a value.
const SummaryMergeErrorPrefix = "[summary merge failed]"

// IsSummaryMergeError reports whether s is a failure placeholder
func IsSummaryMergeError(s string) bool {
	return strings.HasPrefix(s, SummaryMergeErrorPrefix)
}

// SummaryInput carries the project and the content to merge into it
type SummaryInput struct {
	ProjectID          model.ProjectID
	ProjectName        string
	ProjectDescription string
	CurrentSummary     string
	ExtractedContent   string
	Version            *int
}

// SummaryMerger folds new content into a project summary
type SummaryMerger struct {
	configs    *AIConfigUseCase
	completion interfaces.CompletionClient
}

func NewSummaryMerger(configs *AIConfigUseCase, completion interfaces.CompletionClient) *SummaryMerger {
	return &SummaryMerger{configs: configs, completion: completion}
}

// MergeSummary returns the merged markdown summary, or a placeholder starting
// with SummaryMergeErrorPrefix when anything fails.
func (m *SummaryMerger) MergeSummary(ctx context.Context, in SummaryInput) string {
	summary, err := m.merge(ctx, in)
	if err != nil {
		errutil.Handle(ctx, err, "summary merge failed")
		return SummaryMergeErrorPrefix + " " + err.Error()
	}
	return summary
}

func (m *SummaryMerger) merge(ctx context.Context, in SummaryInput) (string, error) {
	cfg, err := m.configs.Resolve(ctx, types.UseCaseProjectSummary, in.Version)
	if err != nil {
		return "", goerr.Wrap(err, "failed to load summary config")
	}

	obj, err := completeJSON(ctx, m.completion, cfg, map[string]string{
		"project_name":        in.ProjectName,
		"project_description": in.ProjectDescription,
		"current_summary":     in.CurrentSummary,
		"extracted_content":   in.ExtractedContent,
	})
	if err != nil {
		return "", goerr.Wrap(err, "summary merge request failed", goerr.V(ProjectIDKey, in.ProjectID))
	}

	var summary string
	if err := requireKey(obj, "summary", &summary); err != nil {
		return "", goerr.Wrap(err, "invalid summary response", goerr.V(ProjectIDKey, in.ProjectID))
	}
	return summary, nil
}
