package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
)

type actionItemRepository struct {
	mu    sync.RWMutex
	items map[string]map[model.ActionItemID]*model.ActionItem
}

func newActionItemRepository() *actionItemRepository {
	return &actionItemRepository{
		items: make(map[string]map[model.ActionItemID]*model.ActionItem),
	}
}

// copyActionItem creates a deep copy of an action item
func copyActionItem(a *model.ActionItem) *model.ActionItem {
	cp := *a
	cp.Projects = slices.Clone(a.Projects)
	if cp.Projects == nil {
		cp.Projects = []model.ProjectID{}
	}
	cp.ExtractedEntities = make(map[string][]string, len(a.ExtractedEntities))
	for k, v := range a.ExtractedEntities {
		cp.ExtractedEntities[k] = slices.Clone(v)
	}
	return &cp
}

func (r *actionItemRepository) Create(ctx context.Context, userID string, item *model.ActionItem) (*model.ActionItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[userID]; !ok {
		r.items[userID] = make(map[model.ActionItemID]*model.ActionItem)
	}

	now := time.Now().UTC()
	created := copyActionItem(item)
	if created.ID == "" {
		created.ID = model.NewActionItemID()
	}
	created.UserID = userID
	created.CreatedAt = now
	created.UpdatedAt = now

	r.items[userID][created.ID] = created
	return copyActionItem(created), nil
}

func (r *actionItemRepository) Get(ctx context.Context, userID string, id model.ActionItemID) (*model.ActionItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[userID][id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "action item not found", goerr.V("id", id))
	}
	return copyActionItem(item), nil
}

func (r *actionItemRepository) List(ctx context.Context, userID string, filter interfaces.ActionItemFilter) ([]*model.ActionItem, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*model.ActionItem, 0)
	for _, item := range r.items[userID] {
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		if filter.ProjectID != nil && !slices.Contains(item.Projects, *filter.ProjectID) {
			continue
		}
		matched = append(matched, item)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	page, next := paginate(matched, filter.ListOptions, func(a *model.ActionItem) string { return string(a.ID) })
	result := make([]*model.ActionItem, len(page))
	for i, item := range page {
		result[i] = copyActionItem(item)
	}
	return result, next, nil
}

func (r *actionItemRepository) Update(ctx context.Context, userID string, item *model.ActionItem) (*model.ActionItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[userID][item.ID]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "action item not found", goerr.V("id", item.ID))
	}

	updated := copyActionItem(item)
	updated.UserID = userID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	r.items[userID][item.ID] = updated

	return copyActionItem(updated), nil
}

func (r *actionItemRepository) SetProjects(ctx context.Context, userID string, id model.ActionItemID, projectIDs []model.ProjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[userID][id]
	if !ok {
		return goerr.Wrap(ErrNotFound, "action item not found", goerr.V("id", id))
	}
	item.Projects = slices.Clone(projectIDs)
	item.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *actionItemRepository) Delete(ctx context.Context, userID string, id model.ActionItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[userID][id]; !ok {
		return goerr.Wrap(ErrNotFound, "action item not found", goerr.V("id", id))
	}
	delete(r.items[userID], id)
	return nil
}
