package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
)

type fileJobRepository struct {
	mu   sync.RWMutex
	jobs map[model.FileJobID]*model.FileJob
}

func newFileJobRepository() *fileJobRepository {
	return &fileJobRepository{
		jobs: make(map[model.FileJobID]*model.FileJob),
	}
}

func copyFileJob(j *model.FileJob) *model.FileJob {
	cp := *j
	if j.Version != nil {
		v := *j.Version
		cp.Version = &v
	}
	return &cp
}

func (r *fileJobRepository) Create(ctx context.Context, job *model.FileJob) (*model.FileJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyFileJob(job)
	if created.ID == "" {
		created.ID = model.NewFileJobID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.jobs[created.ID] = created
	return copyFileJob(created), nil
}

// get returns the stored job if it belongs to userID. Caller must hold the lock.
func (r *fileJobRepository) get(userID string, id model.FileJobID) (*model.FileJob, error) {
	j, ok := r.jobs[id]
	if !ok || j.UserID != userID {
		return nil, goerr.Wrap(ErrNotFound, "file job not found", goerr.V("id", id))
	}
	return j, nil
}

func (r *fileJobRepository) Get(ctx context.Context, userID string, id model.FileJobID) (*model.FileJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, err := r.get(userID, id)
	if err != nil {
		return nil, err
	}
	return copyFileJob(j), nil
}

func (r *fileJobRepository) List(ctx context.Context, userID string) ([]*model.FileJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.FileJob, 0)
	for _, j := range r.jobs {
		if j.UserID == userID {
			result = append(result, copyFileJob(j))
		}
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})
	return result, nil
}

func (r *fileJobRepository) Update(ctx context.Context, job *model.FileJob) (*model.FileJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.get(job.UserID, job.ID)
	if err != nil {
		return nil, err
	}

	updated := copyFileJob(job)
	updated.CreatedAt = existing.CreatedAt
	// the interrupt flag is owned by SetInterrupted and must survive a
	// concurrent worker update
	updated.Interrupted = existing.Interrupted || job.Interrupted
	updated.UpdatedAt = time.Now().UTC()
	r.jobs[job.ID] = updated

	return copyFileJob(updated), nil
}

func (r *fileJobRepository) UpdateProgress(ctx context.Context, userID string, id model.FileJobID, processed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, err := r.get(userID, id)
	if err != nil {
		return err
	}
	j.ProcessedRecords = processed
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fileJobRepository) SetInterrupted(ctx context.Context, userID string, id model.FileJobID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, err := r.get(userID, id)
	if err != nil {
		return err
	}
	j.Interrupted = true
	j.UpdatedAt = time.Now().UTC()
	return nil
}
