package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

type ActionItemUseCase struct {
	repo     interfaces.Repository
	projects *ProjectUseCase
	tagger   *ProjectTagger
}

func NewActionItemUseCase(repo interfaces.Repository, projects *ProjectUseCase, tagger *ProjectTagger) *ActionItemUseCase {
	return &ActionItemUseCase{repo: repo, projects: projects, tagger: tagger}
}

// validateProjects checks every id belongs to the user and drops duplicates
func (uc *ActionItemUseCase) validateProjects(ctx context.Context, userID string, ids []model.ProjectID) ([]model.ProjectID, error) {
	seen := make(map[model.ProjectID]struct{}, len(ids))
	result := make([]model.ProjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, err := uc.projects.GetProject(ctx, userID, id); err != nil {
			return nil, err
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result, nil
}

// CreateActionItem stores a user-created item. An item without projects is
// placed under the My Life project.
func (uc *ActionItemUseCase) CreateActionItem(ctx context.Context, userID string, item *model.ActionItem) (*model.ActionItem, error) {
	item.Task = strings.TrimSpace(item.Task)
	if item.Task == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "task is required")
	}
	if item.Status == "" {
		item.Status = types.ActionItemStatusOpen
	}
	if !item.Status.IsValid() {
		return nil, goerr.Wrap(ErrInvalidInput, "invalid status", goerr.V("status", item.Status))
	}
	item.Type = types.NormalizeActionItemType(string(item.Type))

	projects, err := uc.validateProjects(ctx, userID, item.Projects)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		myLife, err := uc.projects.EnsureRootProject(ctx, userID, types.ProjectNameMyLife, myLifeDescription)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to prepare default project")
		}
		projects = []model.ProjectID{myLife.ID}
	}
	item.Projects = projects

	created, err := uc.repo.ActionItem().Create(ctx, userID, item)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create action item", goerr.V(UserIDKey, userID))
	}
	return created, nil
}

func (uc *ActionItemUseCase) GetActionItem(ctx context.Context, userID string, id model.ActionItemID) (*model.ActionItem, error) {
	item, err := uc.repo.ActionItem().Get(ctx, userID, id)
	if err != nil {
		return nil, goerr.Wrap(ErrActionItemNotFound, "action item not found",
			goerr.V(ActionItemIDKey, id), goerr.V("cause", err.Error()))
	}
	return item, nil
}

func (uc *ActionItemUseCase) ListActionItems(ctx context.Context, userID string, filter interfaces.ActionItemFilter) ([]*model.ActionItem, string, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, "", goerr.Wrap(ErrInvalidInput, "invalid status", goerr.V("status", *filter.Status))
	}
	items, next, err := uc.repo.ActionItem().List(ctx, userID, filter)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to list action items", goerr.V(UserIDKey, userID))
	}
	return items, next, nil
}

// UpdateActionItem applies a partial update. A non-nil projects replaces the
// project list after validation.
func (uc *ActionItemUseCase) UpdateActionItem(ctx context.Context, userID string, id model.ActionItemID, upd model.ActionItemUpdate, projects []model.ProjectID) (*model.ActionItem, error) {
	item, err := uc.GetActionItem(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Task != nil && strings.TrimSpace(*upd.Task) == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "task must not be empty")
	}
	if upd.Status != nil && !upd.Status.IsValid() {
		return nil, goerr.Wrap(ErrInvalidInput, "invalid status", goerr.V("status", *upd.Status))
	}
	if upd.Type != nil {
		t := types.NormalizeActionItemType(string(*upd.Type))
		upd.Type = &t
	}
	upd.Apply(item)

	if projects != nil {
		validated, err := uc.validateProjects(ctx, userID, projects)
		if err != nil {
			return nil, err
		}
		item.Projects = validated
	}

	updated, err := uc.repo.ActionItem().Update(ctx, userID, item)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update action item", goerr.V(ActionItemIDKey, id))
	}
	return updated, nil
}

func (uc *ActionItemUseCase) DeleteActionItem(ctx context.Context, userID string, id model.ActionItemID) error {
	if _, err := uc.GetActionItem(ctx, userID, id); err != nil {
		return err
	}
	if err := uc.repo.ActionItem().Delete(ctx, userID, id); err != nil {
		return goerr.Wrap(err, "failed to delete action item", goerr.V(ActionItemIDKey, id))
	}
	return nil
}

// TagActionItems runs project tagging for the user on demand
func (uc *ActionItemUseCase) TagActionItems(ctx context.Context, userID string) *model.TaggingResult {
	return uc.tagger.RunForUser(ctx, userID)
}
