package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/utils/async"
)

type ProjectUseCase struct {
	repo   interfaces.Repository
	tagger *ProjectTagger
}

func NewProjectUseCase(repo interfaces.Repository, tagger *ProjectTagger) *ProjectUseCase {
	return &ProjectUseCase{repo: repo, tagger: tagger}
}

// checkSiblingName fails when another project under parentID is named name
func (uc *ProjectUseCase) checkSiblingName(ctx context.Context, userID string, parentID *model.ProjectID, name string, self model.ProjectID) error {
	existing, err := uc.repo.Project().FindByName(ctx, userID, parentID, name)
	if err != nil {
		return goerr.Wrap(err, "failed to look up sibling project", goerr.V("name", name))
	}
	if existing != nil && existing.ID != self {
		return goerr.Wrap(ErrDuplicateProjectName, "project name already used",
			goerr.V("name", name), goerr.V(ProjectIDKey, existing.ID))
	}
	return nil
}

func (uc *ProjectUseCase) CreateProject(ctx context.Context, userID, name, description string, parentID *model.ProjectID) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "project name is required")
	}

	level := 1
	if parentID != nil {
		parent, err := uc.repo.Project().Get(ctx, userID, *parentID)
		if err != nil {
			return nil, goerr.Wrap(ErrProjectNotFound, "parent project not found",
				goerr.V(ProjectIDKey, *parentID), goerr.V("cause", err.Error()))
		}
		if parent.Level >= types.MaxProjectLevel {
			return nil, goerr.Wrap(ErrMaxDepthExceeded, "parent project is at the deepest level",
				goerr.V(ProjectIDKey, parent.ID), goerr.V("level", parent.Level))
		}
		level = parent.Level + 1
	}

	if err := uc.checkSiblingName(ctx, userID, parentID, name, ""); err != nil {
		return nil, err
	}

	created, err := uc.repo.Project().Create(ctx, userID, &model.Project{
		Name:        name,
		Description: description,
		ParentID:    parentID,
		Level:       level,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create project", goerr.V(UserIDKey, userID))
	}

	// a new project may fit existing action items
	if uc.tagger != nil {
		async.Dispatch(ctx, func(ctx context.Context) error {
			result := uc.tagger.RunForUser(ctx, userID)
			if !result.Success {
				return goerr.New("project tagging after project creation failed",
					goerr.V(UserIDKey, userID), goerr.V("error", result.Error))
			}
			return nil
		})
	}

	return created, nil
}

func (uc *ProjectUseCase) GetProject(ctx context.Context, userID string, id model.ProjectID) (*model.Project, error) {
	p, err := uc.repo.Project().Get(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(ErrProjectNotFound, "project not found",
			goerr.V(ProjectIDKey, id), goerr.V("cause", err.Error()))
	}
	return p, nil
}

// ListProjects returns every project of the user, shallow levels first
func (uc *ProjectUseCase) ListProjects(ctx context.Context, userID string) ([]*model.Project, error) {
	projects, err := uc.repo.Project().List(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list projects", goerr.V(UserIDKey, userID))
	}
	return projects, nil
}

// UpdateProject changes name and description. The summary is owned by the
// ingestion pipeline and the position in the tree is fixed.
func (uc *ProjectUseCase) UpdateProject(ctx context.Context, userID string, id model.ProjectID, name, description string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "project name is required")
	}

	existing, err := uc.GetProject(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if name != existing.Name {
		if err := uc.checkSiblingName(ctx, userID, existing.ParentID, name, id); err != nil {
			return nil, err
		}
	}

	existing.Name = name
	existing.Description = description
	updated, err := uc.repo.Project().Update(ctx, userID, existing)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update project", goerr.V(ProjectIDKey, id))
	}
	return updated, nil
}

// DeleteProject removes a leaf project and drops it from the action items
// tagged with it.
func (uc *ProjectUseCase) DeleteProject(ctx context.Context, userID string, id model.ProjectID) error {
	if _, err := uc.GetProject(ctx, userID, id); err != nil {
		return err
	}

	children, err := uc.repo.Project().ListChildren(ctx, userID, id)
	if err != nil {
		return goerr.Wrap(err, "failed to list sub-projects", goerr.V(ProjectIDKey, id))
	}
	if len(children) > 0 {
		return goerr.Wrap(ErrProjectHasChildren, "delete sub-projects first",
			goerr.V(ProjectIDKey, id), goerr.V("children", len(children)))
	}

	items, _, err := uc.repo.ActionItem().List(ctx, userID, interfaces.ActionItemFilter{ProjectID: &id})
	if err != nil {
		return goerr.Wrap(err, "failed to list tagged action items", goerr.V(ProjectIDKey, id))
	}
	for _, item := range items {
		remaining := make([]model.ProjectID, 0, len(item.Projects))
		for _, pid := range item.Projects {
			if pid != id {
				remaining = append(remaining, pid)
			}
		}
		if err := uc.repo.ActionItem().SetProjects(ctx, userID, item.ID, remaining); err != nil {
			return goerr.Wrap(err, "failed to untag action item",
				goerr.V(ProjectIDKey, id), goerr.V(ActionItemIDKey, item.ID))
		}
	}

	if err := uc.repo.Project().Delete(ctx, userID, id); err != nil {
		return goerr.Wrap(err, "failed to delete project", goerr.V(ProjectIDKey, id))
	}
	return nil
}

// EnsureRootProject returns the root project named name, creating it when
// missing. It backs the reserved projects.
func (uc *ProjectUseCase) EnsureRootProject(ctx context.Context, userID, name, description string) (*model.Project, error) {
	existing, err := uc.repo.Project().FindByName(ctx, userID, nil, name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up project", goerr.V("name", name))
	}
	if existing != nil {
		return existing, nil
	}

	created, err := uc.repo.Project().Create(ctx, userID, &model.Project{
		Name:        name,
		Description: description,
		Level:       1,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create project", goerr.V("name", name))
	}
	return created, nil
}

// UpdateSummary stores a merged summary. Failure placeholders are ignored.
func (uc *ProjectUseCase) UpdateSummary(ctx context.Context, userID string, id model.ProjectID, summary string) error {
	if IsSummaryMergeError(summary) {
		return nil
	}
	if err := uc.repo.Project().UpdateSummary(ctx, userID, id, summary); err != nil {
		return goerr.Wrap(err, "failed to update project summary", goerr.V(ProjectIDKey, id))
	}
	return nil
}

const (
	miscellaneousDescription = "Notes that do not belong to any other project"
	myLifeDescription        = "Default project for action items without a project"
)
