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

// noteDoc is the Firestore document representation of model.Note. Project
// refs are resolved on read and never stored.
type noteDoc struct {
	ID         string    `firestore:"ID"`
	UserID     string    `firestore:"UserID"`
	Content    string    `firestore:"Content"`
	ProjectIDs []string  `firestore:"ProjectIDs"`
	CreatedAt  time.Time `firestore:"CreatedAt"`
}

func toNoteDoc(n *model.Note) *noteDoc {
	ids := make([]string, len(n.ProjectIDs))
	for i, id := range n.ProjectIDs {
		ids[i] = string(id)
	}
	return &noteDoc{
		ID:         string(n.ID),
		UserID:     n.UserID,
		Content:    n.Content,
		ProjectIDs: ids,
		CreatedAt:  n.CreatedAt,
	}
}

func docToNote(doc *firestore.DocumentSnapshot) (*model.Note, error) {
	var d noteDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode note", goerr.V("doc_id", doc.Ref.ID))
	}
	ids := make([]model.ProjectID, len(d.ProjectIDs))
	for i, id := range d.ProjectIDs {
		ids[i] = model.ProjectID(id)
	}
	return &model.Note{
		ID:         model.NoteID(d.ID),
		UserID:     d.UserID,
		Content:    d.Content,
		ProjectIDs: ids,
		CreatedAt:  d.CreatedAt,
	}, nil
}

type noteRepository struct {
	client *firestore.Client
	cols   collections
}

func newNoteRepository(c collections) *noteRepository {
	return &noteRepository{client: c.client, cols: c}
}

func (r *noteRepository) collection(userID string) *firestore.CollectionRef {
	return r.cols.user(userID, collectionNotes)
}

func (r *noteRepository) Create(ctx context.Context, userID string, note *model.Note) (*model.Note, error) {
	created := *note
	if created.ID == "" {
		created.ID = model.NewNoteID()
	}
	created.UserID = userID
	created.CreatedAt = time.Now().UTC()
	if created.ProjectIDs == nil {
		created.ProjectIDs = []model.ProjectID{}
	}
	created.Projects = nil

	if _, err := r.collection(userID).Doc(string(created.ID)).Create(ctx, toNoteDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create note", goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *noteRepository) Get(ctx context.Context, userID string, id model.NoteID) (*model.Note, error) {
	doc, err := r.collection(userID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get note", goerr.V("id", id))
	}
	return docToNote(doc)
}

func (r *noteRepository) List(ctx context.Context, userID string, opts interfaces.ListOptions) ([]*model.Note, string, error) {
	coll := r.collection(userID)
	docs, next, err := fetchPage(ctx, coll, coll.OrderBy("CreatedAt", firestore.Desc), opts)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to list notes")
	}

	notes := make([]*model.Note, 0, len(docs))
	for _, doc := range docs {
		n, err := docToNote(doc)
		if err != nil {
			return nil, "", err
		}
		notes = append(notes, n)
	}
	return notes, next, nil
}

func (r *noteRepository) SetProjects(ctx context.Context, userID string, id model.NoteID, projectIDs []model.ProjectID) error {
	ids := make([]string, len(projectIDs))
	for i, pid := range projectIDs {
		ids[i] = string(pid)
	}

	_, err := r.collection(userID).Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "ProjectIDs", Value: ids},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to set note projects", goerr.V("id", id))
	}
	return nil
}

func (r *noteRepository) Delete(ctx context.Context, userID string, id model.NoteID) error {
	if _, err := r.collection(userID).Doc(string(id)).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to delete note", goerr.V("id", id))
	}
	return nil
}
