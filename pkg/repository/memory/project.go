package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
)

type projectRepository struct {
	mu       sync.RWMutex
	projects map[string]map[model.ProjectID]*model.Project
}

func newProjectRepository() *projectRepository {
	return &projectRepository{
		projects: make(map[string]map[model.ProjectID]*model.Project),
	}
}

func copyProject(p *model.Project) *model.Project {
	cp := *p
	if p.ParentID != nil {
		parent := *p.ParentID
		cp.ParentID = &parent
	}
	return &cp
}

func sameParent(a, b *model.ProjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortProjects(projects []*model.Project) {
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Level != projects[j].Level {
			return projects[i].Level < projects[j].Level
		}
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.Before(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
}

func (r *projectRepository) Create(ctx context.Context, userID string, project *model.Project) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[userID]; !ok {
		r.projects[userID] = make(map[model.ProjectID]*model.Project)
	}

	now := time.Now().UTC()
	created := copyProject(project)
	if created.ID == "" {
		created.ID = model.NewProjectID()
	}
	created.UserID = userID
	created.CreatedAt = now
	created.UpdatedAt = now

	r.projects[userID][created.ID] = created
	return copyProject(created), nil
}

func (r *projectRepository) Get(ctx context.Context, userID string, id model.ProjectID) (*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[userID][id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
	}
	return copyProject(p), nil
}

func (r *projectRepository) List(ctx context.Context, userID string) ([]*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Project, 0, len(r.projects[userID]))
	for _, p := range r.projects[userID] {
		result = append(result, copyProject(p))
	}
	sortProjects(result)
	return result, nil
}

func (r *projectRepository) ListChildren(ctx context.Context, userID string, parentID model.ProjectID) ([]*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Project, 0)
	for _, p := range r.projects[userID] {
		if p.ParentID != nil && *p.ParentID == parentID {
			result = append(result, copyProject(p))
		}
	}
	sortProjects(result)
	return result, nil
}

func (r *projectRepository) FindByName(ctx context.Context, userID string, parentID *model.ProjectID, name string) (*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.projects[userID] {
		if p.Name == name && sameParent(p.ParentID, parentID) {
			return copyProject(p), nil
		}
	}
	return nil, nil
}

func (r *projectRepository) Update(ctx context.Context, userID string, project *model.Project) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.projects[userID][project.ID]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", project.ID))
	}

	updated := copyProject(project)
	updated.UserID = userID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	r.projects[userID][project.ID] = updated

	return copyProject(updated), nil
}

func (r *projectRepository) UpdateSummary(ctx context.Context, userID string, id model.ProjectID, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[userID][id]
	if !ok {
		return goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
	}
	p.Summary = summary
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *projectRepository) Delete(ctx context.Context, userID string, id model.ProjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[userID][id]; !ok {
		return goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
	}
	delete(r.projects[userID], id)
	return nil
}
