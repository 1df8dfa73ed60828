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

type noteRepository struct {
	mu    sync.RWMutex
	notes map[string]map[model.NoteID]*model.Note
}

func newNoteRepository() *noteRepository {
	return &noteRepository{
		notes: make(map[string]map[model.NoteID]*model.Note),
	}
}

func copyNote(n *model.Note) *model.Note {
	cp := *n
	cp.ProjectIDs = slices.Clone(n.ProjectIDs)
	if cp.ProjectIDs == nil {
		cp.ProjectIDs = []model.ProjectID{}
	}
	cp.Projects = nil
	return &cp
}

func (r *noteRepository) Create(ctx context.Context, userID string, note *model.Note) (*model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.notes[userID]; !ok {
		r.notes[userID] = make(map[model.NoteID]*model.Note)
	}

	created := copyNote(note)
	if created.ID == "" {
		created.ID = model.NewNoteID()
	}
	created.UserID = userID
	created.CreatedAt = time.Now().UTC()

	r.notes[userID][created.ID] = created
	return copyNote(created), nil
}

func (r *noteRepository) Get(ctx context.Context, userID string, id model.NoteID) (*model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notes[userID][id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
	}
	return copyNote(n), nil
}

func (r *noteRepository) List(ctx context.Context, userID string, opts interfaces.ListOptions) ([]*model.Note, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*model.Note, 0, len(r.notes[userID]))
	for _, n := range r.notes[userID] {
		all = append(all, n)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	page, next := paginate(all, opts, func(n *model.Note) string { return string(n.ID) })
	result := make([]*model.Note, len(page))
	for i, n := range page {
		result[i] = copyNote(n)
	}
	return result, next, nil
}

func (r *noteRepository) SetProjects(ctx context.Context, userID string, id model.NoteID, projectIDs []model.ProjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notes[userID][id]
	if !ok {
		return goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
	}
	n.ProjectIDs = slices.Clone(projectIDs)
	return nil
}

func (r *noteRepository) Delete(ctx context.Context, userID string, id model.NoteID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.notes[userID][id]; !ok {
		return goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
	}
	delete(r.notes[userID], id)
	return nil
}

// paginate cuts a sorted slice at the cursor (the key of the last item of the
// previous page) and returns the page and the next cursor.
func paginate[T any](sorted []T, opts interfaces.ListOptions, key func(T) string) ([]T, string) {
	start := 0
	if opts.Cursor != "" {
		for i, v := range sorted {
			if key(v) == opts.Cursor {
				start = i + 1
				break
			}
		}
	}
	rest := sorted[start:]

	if opts.Limit <= 0 || len(rest) <= opts.Limit {
		return rest, ""
	}
	page := rest[:opts.Limit]
	return page, key(page[len(page)-1])
}
