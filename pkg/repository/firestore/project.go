package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type projectRepository struct {
	client *firestore.Client
	cols   collections
}

func newProjectRepository(c collections) *projectRepository {
	return &projectRepository{client: c.client, cols: c}
}

func (r *projectRepository) collection(userID string) *firestore.CollectionRef {
	return r.cols.user(userID, collectionProjects)
}

func (r *projectRepository) Create(ctx context.Context, userID string, project *model.Project) (*model.Project, error) {
	now := time.Now().UTC()
	created := *project
	if created.ID == "" {
		created.ID = model.NewProjectID()
	}
	created.UserID = userID
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.collection(userID).Doc(string(created.ID)).Create(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create project", goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *projectRepository) Get(ctx context.Context, userID string, id model.ProjectID) (*model.Project, error) {
	doc, err := r.collection(userID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get project", goerr.V("id", id))
	}

	var p model.Project
	if err := doc.DataTo(&p); err != nil {
		return nil, goerr.Wrap(err, "failed to decode project", goerr.V("id", id))
	}
	return &p, nil
}

func (r *projectRepository) query(ctx context.Context, q firestore.Query) ([]*model.Project, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	projects := make([]*model.Project, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate projects")
		}

		var p model.Project
		if err := doc.DataTo(&p); err != nil {
			return nil, goerr.Wrap(err, "failed to decode project", goerr.V("doc_id", doc.Ref.ID))
		}
		projects = append(projects, &p)
	}

	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Level != projects[j].Level {
			return projects[i].Level < projects[j].Level
		}
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

func (r *projectRepository) List(ctx context.Context, userID string) ([]*model.Project, error) {
	return r.query(ctx, r.collection(userID).Query)
}

func (r *projectRepository) ListChildren(ctx context.Context, userID string, parentID model.ProjectID) ([]*model.Project, error) {
	return r.query(ctx, r.collection(userID).Where("ParentID", "==", string(parentID)))
}

func (r *projectRepository) FindByName(ctx context.Context, userID string, parentID *model.ProjectID, name string) (*model.Project, error) {
	q := r.collection(userID).Where("Name", "==", name)
	if parentID == nil {
		q = q.Where("ParentID", "==", nil)
	} else {
		q = q.Where("ParentID", "==", string(*parentID))
	}

	projects, err := r.query(ctx, q.Limit(1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find project by name", goerr.V("name", name))
	}
	if len(projects) == 0 {
		return nil, nil
	}
	return projects[0], nil
}

func (r *projectRepository) Update(ctx context.Context, userID string, project *model.Project) (*model.Project, error) {
	ref := r.collection(userID).Doc(string(project.ID))

	var updated model.Project
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", project.ID))
			}
			return goerr.Wrap(err, "failed to get project", goerr.V("id", project.ID))
		}

		var existing model.Project
		if err := doc.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to decode project", goerr.V("id", project.ID))
		}

		updated = *project
		updated.UserID = userID
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, &updated)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update project", goerr.V("id", project.ID))
	}
	return &updated, nil
}

func (r *projectRepository) UpdateSummary(ctx context.Context, userID string, id model.ProjectID, summary string) error {
	_, err := r.collection(userID).Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "Summary", Value: summary},
		{Path: "UpdatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to update project summary", goerr.V("id", id))
	}
	return nil
}

func (r *projectRepository) Delete(ctx context.Context, userID string, id model.ProjectID) error {
	ref := r.collection(userID).Doc(string(id))
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to delete project", goerr.V("id", id))
	}
	return nil
}
