package usecase

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/utils/errutil"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"github.com/secmon-lab/noteflow/pkg/utils/retry"
)

// ProjectSource lists the projects of a user
type ProjectSource interface {
	ListProjects(ctx context.Context, userID string) ([]*model.Project, error)
}

// ProjectTagger assigns projects to every action item of a user in one LLM
// call.
type ProjectTagger struct {
	repo       interfaces.Repository
	configs    *AIConfigUseCase
	completion interfaces.CompletionClient
	metrics    *MetricsUseCase
	policy     retry.Policy

	mu       sync.RWMutex
	projects ProjectSource
}

func NewProjectTagger(repo interfaces.Repository, configs *AIConfigUseCase, completion interfaces.CompletionClient, metrics *MetricsUseCase, policy retry.Policy) *ProjectTagger {
	return &ProjectTagger{
		repo:       repo,
		configs:    configs,
		completion: completion,
		metrics:    metrics,
		policy:     policy,
	}
}

// SetProjectSource provides the project accessor once it exists
func (t *ProjectTagger) SetProjectSource(src ProjectSource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.projects = src
}

func (t *ProjectTagger) projectSource() ProjectSource {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.projects
}

type taggingProjectView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
}

type taggingItemView struct {
	ID                string              `json:"id"`
	Task              string              `json:"task"`
	Doer              string              `json:"doer,omitempty"`
	Theme             string              `json:"theme,omitempty"`
	Context           string              `json:"context,omitempty"`
	ExtractedEntities map[string][]string `json:"extracted_entities,omitempty"`
	Type              string              `json:"type"`
	CurrentProjects   []string            `json:"current_projects"`
}

// RunForUser tags the user's action items. It never returns an error; the
// outcome, including failures, is in the result and in the metrics.
func (t *ProjectTagger) RunForUser(ctx context.Context, userID string) *model.TaggingResult {
	started := time.Now()
	result := &model.TaggingResult{FailedUpdates: []model.ActionItemID{}}
	var kinds []types.TaggingErrorKind

	defer func() {
		outcome := model.TaggingRunOutcome{
			UserID:        userID,
			Success:       result.Success,
			TaggedItems:   result.TaggedCount,
			FailedUpdates: len(result.FailedUpdates),
			Duration:      time.Since(started),
			ErrorKinds:    kinds,
			At:            started,
		}
		if t.metrics == nil {
			return
		}
		if err := t.metrics.RecordTaggingRun(ctx, outcome); err != nil {
			errutil.Handle(ctx, err, "failed to record tagging metrics")
		}
	}()

	fail := func(kind types.TaggingErrorKind, msg string, err error) *model.TaggingResult {
		kinds = append(kinds, kind)
		result.Success = false
		result.Message = msg
		result.Error = msg
		if err != nil {
			result.Error = err.Error()
			errutil.Handle(ctx, goerr.Wrap(err, msg, goerr.V(UserIDKey, userID)), "project tagging failed")
		}
		return result
	}

	src := t.projectSource()
	if src == nil {
		return fail(types.TaggingErrorProjectSource, "project service not available", nil)
	}

	items, _, err := t.repo.ActionItem().List(ctx, userID, interfaces.ActionItemFilter{})
	if err != nil {
		return fail(types.TaggingErrorFetchFailed, "failed to fetch action items", err)
	}
	projects, err := src.ListProjects(ctx, userID)
	if err != nil {
		return fail(types.TaggingErrorFetchFailed, "failed to fetch projects", err)
	}

	result.TotalActionItems = len(items)
	result.TotalProjects = len(projects)
	if len(items) == 0 || len(projects) == 0 {
		result.Success = true
		result.Message = "nothing to tag"
		return result
	}

	mappings, err := t.requestMappings(ctx, items, projects)
	if err != nil {
		kind := classifyTaggingError(err)
		if kind == types.TaggingErrorUnknown {
			kind = types.TaggingErrorLLM
		}
		return fail(kind, "failed to get project mappings", err)
	}

	knownItems := make(map[model.ActionItemID]struct{}, len(items))
	for _, item := range items {
		knownItems[item.ID] = struct{}{}
	}
	knownProjects := make(map[model.ProjectID]struct{}, len(projects))
	for _, p := range projects {
		knownProjects[p.ID] = struct{}{}
	}

	itemIDs := make([]string, 0, len(mappings))
	for id := range mappings {
		itemIDs = append(itemIDs, id)
	}
	sort.Strings(itemIDs)

	logger := logging.From(ctx)
	for _, rawID := range itemIDs {
		itemID := model.ActionItemID(rawID)
		if _, ok := knownItems[itemID]; !ok {
			logger.Debug("ignoring mapping for unknown action item", "action_item_id", rawID)
			continue
		}

		projectIDs := make([]model.ProjectID, 0, len(mappings[rawID]))
		for _, pid := range mappings[rawID] {
			id := model.ProjectID(pid)
			if _, ok := knownProjects[id]; !ok || slices.Contains(projectIDs, id) {
				continue
			}
			projectIDs = append(projectIDs, id)
		}
		if len(projectIDs) == 0 {
			continue
		}

		err := t.policy.Do(ctx, func(ctx context.Context) error {
			return t.repo.ActionItem().SetProjects(ctx, userID, itemID, projectIDs)
		})
		if err != nil {
			errutil.Handle(ctx, goerr.Wrap(err, "failed to tag action item",
				goerr.V(UserIDKey, userID), goerr.V(ActionItemIDKey, itemID)), "project tagging update failed")
			result.FailedUpdates = append(result.FailedUpdates, itemID)
			continue
		}
		result.TaggedCount++
	}

	result.Success = len(result.FailedUpdates) == 0
	if !result.Success {
		kinds = append(kinds, types.TaggingErrorUpdateFailed)
		result.Error = fmt.Sprintf("%d action item updates failed", len(result.FailedUpdates))
	}
	result.Message = fmt.Sprintf("tagged %d of %d action items", result.TaggedCount, result.TotalActionItems)

	logger.Info("project tagging finished",
		"user_id", userID,
		"tagged", result.TaggedCount,
		"failed", len(result.FailedUpdates),
		"duration", time.Since(started).String())
	return result
}

func (t *ProjectTagger) requestMappings(ctx context.Context, items []*model.ActionItem, projects []*model.Project) (map[string][]string, error) {
	cfg, err := t.configs.GetActive(ctx, types.UseCaseProjectTagging)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load tagging config")
	}

	projectViews := make([]taggingProjectView, 0, len(projects))
	for _, p := range projects {
		v := taggingProjectView{ID: string(p.ID), Name: p.Name, Description: p.Description}
		if p.ParentID != nil {
			parent := string(*p.ParentID)
			v.ParentID = &parent
		}
		projectViews = append(projectViews, v)
	}

	itemViews := make([]taggingItemView, 0, len(items))
	for _, item := range items {
		current := make([]string, len(item.Projects))
		for i, pid := range item.Projects {
			current[i] = string(pid)
		}
		itemViews = append(itemViews, taggingItemView{
			ID:                string(item.ID),
			Task:              item.Task,
			Doer:              item.Doer,
			Theme:             item.Theme,
			Context:           item.Context,
			ExtractedEntities: item.ExtractedEntities,
			Type:              string(item.Type),
			CurrentProjects:   current,
		})
	}

	obj, err := completeJSON(ctx, t.completion, cfg, map[string]string{
		"projects":     mustJSON(projectViews),
		"action_items": mustJSON(itemViews),
	})
	if err != nil {
		return nil, err
	}

	var mappings map[string][]string
	if err := requireKey(obj, "project_mappings", &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}
