package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

// ValidationIssue represents a single validation issue found during DB consistency check
type ValidationIssue struct {
	Target   string
	ID       string
	Message  string
	Expected string
	Actual   string
}

// ValidationResult holds the results of DB validation
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasIssues returns true if there are any validation issues
func (r *ValidationResult) HasIssues() bool {
	return len(r.Issues) > 0
}

// AddIssue adds a validation issue to the result
func (r *ValidationResult) AddIssue(issue ValidationIssue) {
	r.Issues = append(r.Issues, issue)
}

// ValidateDB checks stored AI configurations and, for each given user, that
// project references of notes and action items and the project tree are
// consistent. It does NOT modify any data.
func (uc *UseCases) ValidateDB(ctx context.Context, userIDs ...string) (*ValidationResult, error) {
	result := &ValidationResult{}

	for _, u := range types.AllUseCases() {
		configs, err := uc.repo.AIConfig().List(ctx, u)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list ai configs", goerr.V(UseCaseKey, u))
		}

		active := 0
		for _, cfg := range configs {
			if cfg.IsActive {
				active++
			}
			if err := cfg.Validate(); err != nil {
				result.AddIssue(ValidationIssue{
					Target:   "ai_config",
					ID:       cfg.DocID(),
					Message:  "stored configuration is invalid",
					Expected: "valid template and parameters",
					Actual:   err.Error(),
				})
			}
		}
		if active > 1 {
			result.AddIssue(ValidationIssue{
				Target:   "ai_config",
				ID:       u.String(),
				Message:  "several versions are active",
				Expected: "at most 1",
				Actual:   fmt.Sprint(active),
			})
		}
	}

	for _, userID := range userIDs {
		if err := uc.validateUser(ctx, userID, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (uc *UseCases) validateUser(ctx context.Context, userID string, result *ValidationResult) error {
	projects, err := uc.repo.Project().List(ctx, userID)
	if err != nil {
		return goerr.Wrap(err, "failed to list projects", goerr.V(UserIDKey, userID))
	}
	byID := make(map[model.ProjectID]*model.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	for _, p := range projects {
		expected := 1
		if p.ParentID != nil {
			parent, ok := byID[*p.ParentID]
			if !ok {
				result.AddIssue(ValidationIssue{
					Target:   "project",
					ID:       string(p.ID),
					Message:  "parent project does not exist",
					Expected: "existing parent",
					Actual:   string(*p.ParentID),
				})
				continue
			}
			expected = parent.Level + 1
		}
		if p.Level != expected || p.Level > types.MaxProjectLevel {
			result.AddIssue(ValidationIssue{
				Target:   "project",
				ID:       string(p.ID),
				Message:  "project level does not match its position",
				Expected: fmt.Sprint(expected),
				Actual:   fmt.Sprint(p.Level),
			})
		}
	}

	dangling := func(target, id string, refs []model.ProjectID) {
		for _, ref := range refs {
			if _, ok := byID[ref]; !ok {
				result.AddIssue(ValidationIssue{
					Target:   target,
					ID:       id,
					Message:  "references a missing project",
					Expected: "existing project",
					Actual:   string(ref),
				})
			}
		}
	}

	notes, _, err := uc.repo.Note().List(ctx, userID, interfaces.ListOptions{})
	if err != nil {
		return goerr.Wrap(err, "failed to list notes", goerr.V(UserIDKey, userID))
	}
	for _, n := range notes {
		dangling("note", string(n.ID), n.ProjectIDs)
	}

	items, _, err := uc.repo.ActionItem().List(ctx, userID, interfaces.ActionItemFilter{})
	if err != nil {
		return goerr.Wrap(err, "failed to list action items", goerr.V(UserIDKey, userID))
	}
	for _, item := range items {
		dangling("action_item", string(item.ID), item.Projects)
	}

	return nil
}
