package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type actionItemRepository struct {
	client *firestore.Client
	cols   collections
}

func newActionItemRepository(c collections) *actionItemRepository {
	return &actionItemRepository{client: c.client, cols: c}
}

func (r *actionItemRepository) collection(userID string) *firestore.CollectionRef {
	return r.cols.user(userID, collectionActionItems)
}

func normalizeActionItem(item *model.ActionItem) {
	if item.Projects == nil {
		item.Projects = []model.ProjectID{}
	}
	if item.ExtractedEntities == nil {
		item.ExtractedEntities = map[string][]string{}
	}
}

func decodeActionItem(doc *firestore.DocumentSnapshot) (*model.ActionItem, error) {
	var item model.ActionItem
	if err := doc.DataTo(&item); err != nil {
		return nil, goerr.Wrap(err, "failed to decode action item", goerr.V("doc_id", doc.Ref.ID))
	}
	normalizeActionItem(&item)
	return &item, nil
}

func (r *actionItemRepository) Create(ctx context.Context, userID string, item *model.ActionItem) (*model.ActionItem, error) {
	now := time.Now().UTC()
	created := *item
	if created.ID == "" {
		created.ID = model.NewActionItemID()
	}
	created.UserID = userID
	created.CreatedAt = now
	created.UpdatedAt = now
	normalizeActionItem(&created)

	if _, err := r.collection(userID).Doc(string(created.ID)).Create(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create action item", goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *actionItemRepository) Get(ctx context.Context, userID string, id model.ActionItemID) (*model.ActionItem, error) {
	doc, err := r.collection(userID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "action item not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get action item", goerr.V("id", id))
	}
	return decodeActionItem(doc)
}

func (r *actionItemRepository) List(ctx context.Context, userID string, filter interfaces.ActionItemFilter) ([]*model.ActionItem, string, error) {
	coll := r.collection(userID)
	q := coll.Query
	if filter.Status != nil {
		q = q.Where("Status", "==", string(*filter.Status))
	}
	if filter.ProjectID != nil {
		q = q.Where("Projects", "array-contains", string(*filter.ProjectID))
	}
	q = q.OrderBy("CreatedAt", firestore.Desc)

	docs, next, err := fetchPage(ctx, coll, q, filter.ListOptions)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to list action items")
	}

	items := make([]*model.ActionItem, 0, len(docs))
	for _, doc := range docs {
		item, err := decodeActionItem(doc)
		if err != nil {
			return nil, "", err
		}
		items = append(items, item)
	}
	return items, next, nil
}

func (r *actionItemRepository) Update(ctx context.Context, userID string, item *model.ActionItem) (*model.ActionItem, error) {
	ref := r.collection(userID).Doc(string(item.ID))

	var updated model.ActionItem
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "action item not found", goerr.V("id", item.ID))
			}
			return goerr.Wrap(err, "failed to get action item", goerr.V("id", item.ID))
		}
		existing, err := decodeActionItem(doc)
		if err != nil {
			return err
		}

		updated = *item
		updated.UserID = userID
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = time.Now().UTC()
		normalizeActionItem(&updated)
		return tx.Set(ref, &updated)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update action item", goerr.V("id", item.ID))
	}
	return &updated, nil
}

func (r *actionItemRepository) SetProjects(ctx context.Context, userID string, id model.ActionItemID, projectIDs []model.ProjectID) error {
	ids := make([]string, len(projectIDs))
	for i, pid := range projectIDs {
		ids[i] = string(pid)
	}

	_, err := r.collection(userID).Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "Projects", Value: ids},
		{Path: "UpdatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "action item not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to set action item projects", goerr.V("id", id))
	}
	return nil
}

func (r *actionItemRepository) Delete(ctx context.Context, userID string, id model.ActionItemID) error {
	if _, err := r.collection(userID).Doc(string(id)).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "action item not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to delete action item", goerr.V("id", id))
	}
	return nil
}
