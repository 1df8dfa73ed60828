package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = goerr.New("not found")

const (
	collectionAIConfigs      = "ai_configs"
	collectionUsers          = "users"
	collectionProjects       = "projects"
	collectionNotes          = "notes"
	collectionActionItems    = "action_items"
	collectionFileJobs       = "file_jobs"
	collectionTaggingMetrics = "tagging_metrics"
)

type Firestore struct {
	client     *firestore.Client
	prefix     string
	aiConfig   *aiConfigRepository
	project    *projectRepository
	note       *noteRepository
	actionItem *actionItemRepository
	metrics    *taggingMetricsRepository
	fileJob    *fileJobRepository
	user       *userRepository
}

var _ interfaces.Repository = &Firestore{}

// Option configures Firestore
type Option func(*Firestore)

// WithCollectionPrefix prepends prefix to every top-level collection name.
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.prefix = prefix
	}
}

// New connects to the given Firestore database. An empty databaseID selects
// the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{client: client}
	for _, opt := range opts {
		opt(f)
	}

	c := collections{client: client, prefix: f.prefix}
	f.aiConfig = newAIConfigRepository(c)
	f.project = newProjectRepository(c)
	f.note = newNoteRepository(c)
	f.actionItem = newActionItemRepository(c)
	f.metrics = newTaggingMetricsRepository(c)
	f.fileJob = newFileJobRepository(c)
	f.user = newUserRepository(c)

	return f, nil
}

func (f *Firestore) AIConfig() interfaces.AIConfigRepository {
	return f.aiConfig
}

func (f *Firestore) Project() interfaces.ProjectRepository {
	return f.project
}

func (f *Firestore) Note() interfaces.NoteRepository {
	return f.note
}

func (f *Firestore) ActionItem() interfaces.ActionItemRepository {
	return f.actionItem
}

func (f *Firestore) TaggingMetrics() interfaces.TaggingMetricsRepository {
	return f.metrics
}

func (f *Firestore) FileJob() interfaces.FileJobRepository {
	return f.fileJob
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.user
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// collections resolves collection names under the configured prefix
type collections struct {
	client *firestore.Client
	prefix string
}

func (c collections) top(name string) *firestore.CollectionRef {
	if c.prefix == "" {
		return c.client.Collection(name)
	}
	return c.client.Collection(c.prefix + "_" + name)
}

// user returns users/{userID}/{name}
func (c collections) user(userID, name string) *firestore.CollectionRef {
	return c.top(collectionUsers).Doc(userID).Collection(name)
}
