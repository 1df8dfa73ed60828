package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fileJobRepository struct {
	client *firestore.Client
	cols   collections
}

func newFileJobRepository(c collections) *fileJobRepository {
	return &fileJobRepository{client: c.client, cols: c}
}

func (r *fileJobRepository) collection() *firestore.CollectionRef {
	return r.cols.top(collectionFileJobs)
}

func decodeFileJob(doc *firestore.DocumentSnapshot) (*model.FileJob, error) {
	var j model.FileJob
	if err := doc.DataTo(&j); err != nil {
		return nil, goerr.Wrap(err, "failed to decode file job", goerr.V("doc_id", doc.Ref.ID))
	}
	return &j, nil
}

// owned loads the job through tx (or directly when tx is nil) and checks that
// it belongs to userID.
func (r *fileJobRepository) owned(ctx context.Context, tx *firestore.Transaction, userID string, id model.FileJobID) (*model.FileJob, error) {
	ref := r.collection().Doc(string(id))

	var doc *firestore.DocumentSnapshot
	var err error
	if tx != nil {
		doc, err = tx.Get(ref)
	} else {
		doc, err = ref.Get(ctx)
	}
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "file job not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get file job", goerr.V("id", id))
	}

	j, err := decodeFileJob(doc)
	if err != nil {
		return nil, err
	}
	if j.UserID != userID {
		return nil, goerr.Wrap(ErrNotFound, "file job not found", goerr.V("id", id))
	}
	return j, nil
}

func (r *fileJobRepository) Create(ctx context.Context, job *model.FileJob) (*model.FileJob, error) {
	now := time.Now().UTC()
	created := *job
	if created.ID == "" {
		created.ID = model.NewFileJobID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.collection().Doc(string(created.ID)).Create(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create file job", goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *fileJobRepository) Get(ctx context.Context, userID string, id model.FileJobID) (*model.FileJob, error) {
	return r.owned(ctx, nil, userID, id)
}

func (r *fileJobRepository) List(ctx context.Context, userID string) ([]*model.FileJob, error) {
	iter := r.collection().
		Where("UserID", "==", userID).
		OrderBy("CreatedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	jobs := make([]*model.FileJob, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate file jobs", goerr.V("user_id", userID))
		}
		j, err := decodeFileJob(doc)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (r *fileJobRepository) Update(ctx context.Context, job *model.FileJob) (*model.FileJob, error) {
	ref := r.collection().Doc(string(job.ID))

	var updated model.FileJob
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := r.owned(ctx, tx, job.UserID, job.ID)
		if err != nil {
			return err
		}

		updated = *job
		updated.CreatedAt = existing.CreatedAt
		// the interrupt flag is owned by SetInterrupted and must survive a
		// concurrent worker update
		updated.Interrupted = existing.Interrupted || job.Interrupted
		updated.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, &updated)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update file job", goerr.V("id", job.ID))
	}
	return &updated, nil
}

func (r *fileJobRepository) patch(ctx context.Context, userID string, id model.FileJobID, updates []firestore.Update) error {
	ref := r.collection().Doc(string(id))
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := r.owned(ctx, tx, userID, id); err != nil {
			return err
		}
		updates = append(updates, firestore.Update{Path: "UpdatedAt", Value: time.Now().UTC()})
		return tx.Update(ref, updates)
	})
}

func (r *fileJobRepository) UpdateProgress(ctx context.Context, userID string, id model.FileJobID, processed int) error {
	if err := r.patch(ctx, userID, id, []firestore.Update{
		{Path: "ProcessedRecords", Value: processed},
	}); err != nil {
		return goerr.Wrap(err, "failed to update file job progress", goerr.V("id", id))
	}
	return nil
}

func (r *fileJobRepository) SetInterrupted(ctx context.Context, userID string, id model.FileJobID) error {
	if err := r.patch(ctx, userID, id, []firestore.Update{
		{Path: "Interrupted", Value: true},
	}); err != nil {
		return goerr.Wrap(err, "failed to interrupt file job", goerr.V("id", id))
	}
	return nil
}
