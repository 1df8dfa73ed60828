package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

// Repository defines the interface for data persistence
type Repository interface {
	AIConfig() AIConfigRepository
	Project() ProjectRepository
	Note() NoteRepository
	ActionItem() ActionItemRepository
	TaggingMetrics() TaggingMetricsRepository
	FileJob() FileJobRepository
	User() UserRepository

	Close() error
}

// AIConfigRepository stores versioned AI configurations. Version assignment
// and sibling deactivation are atomic per use case.
type AIConfigRepository interface {
	Get(ctx context.Context, useCase types.UseCase, version int) (*model.AIConfig, error)
	// List returns all versions of the use case ordered by version.
	List(ctx context.Context, useCase types.UseCase) ([]*model.AIConfig, error)
	// ListActive returns every version flagged active, ordered by version.
	ListActive(ctx context.Context, useCase types.UseCase) ([]*model.AIConfig, error)
	// Create stores cfg as version max+1 (or 1). When cfg.IsActive is set the
	// other versions are deactivated in the same transaction.
	Create(ctx context.Context, cfg *model.AIConfig) (*model.AIConfig, error)
	// Activate marks the version active and its siblings inactive. It returns
	// false when the version was already the only active one.
	Activate(ctx context.Context, useCase types.UseCase, version int) (bool, error)
	// Delete removes an inactive version. It returns false when the version is
	// active or does not exist.
	Delete(ctx context.Context, useCase types.UseCase, version int) (bool, error)
}

// ProjectRepository stores a user's project tree
type ProjectRepository interface {
	Create(ctx context.Context, userID string, project *model.Project) (*model.Project, error)
	Get(ctx context.Context, userID string, id model.ProjectID) (*model.Project, error)
	List(ctx context.Context, userID string) ([]*model.Project, error)
	ListChildren(ctx context.Context, userID string, parentID model.ProjectID) ([]*model.Project, error)
	// FindByName returns the sibling named name under parentID (root when
	// nil), or nil when there is none.
	FindByName(ctx context.Context, userID string, parentID *model.ProjectID, name string) (*model.Project, error)
	Update(ctx context.Context, userID string, project *model.Project) (*model.Project, error)
	UpdateSummary(ctx context.Context, userID string, id model.ProjectID, summary string) error
	Delete(ctx context.Context, userID string, id model.ProjectID) error
}

// ListOptions is a cursor based page request. Limit 0 returns everything.
type ListOptions struct {
	Limit  int
	Cursor string
}

// NoteRepository stores notes
type NoteRepository interface {
	Create(ctx context.Context, userID string, note *model.Note) (*model.Note, error)
	Get(ctx context.Context, userID string, id model.NoteID) (*model.Note, error)
	// List returns notes newest first and the cursor of the next page ("" when
	// there is none).
	List(ctx context.Context, userID string, opts ListOptions) ([]*model.Note, string, error)
	SetProjects(ctx context.Context, userID string, id model.NoteID, projectIDs []model.ProjectID) error
	Delete(ctx context.Context, userID string, id model.NoteID) error
}

// ActionItemFilter narrows ActionItemRepository.List
type ActionItemFilter struct {
	Status    *types.ActionItemStatus
	ProjectID *model.ProjectID
	ListOptions
}

// ActionItemRepository stores action items
type ActionItemRepository interface {
	Create(ctx context.Context, userID string, item *model.ActionItem) (*model.ActionItem, error)
	Get(ctx context.Context, userID string, id model.ActionItemID) (*model.ActionItem, error)
	// List returns items newest first and the cursor of the next page.
	List(ctx context.Context, userID string, filter ActionItemFilter) ([]*model.ActionItem, string, error)
	Update(ctx context.Context, userID string, item *model.ActionItem) (*model.ActionItem, error)
	// SetProjects replaces the project list of one item.
	SetProjects(ctx context.Context, userID string, id model.ActionItemID, projectIDs []model.ProjectID) error
	Delete(ctx context.Context, userID string, id model.ActionItemID) error
}

// TaggingMetricsRepository stores tagging metric buckets
type TaggingMetricsRepository interface {
	// Get returns nil when the bucket does not exist yet.
	Get(ctx context.Context, granularity types.Granularity, bucketStart time.Time) (*model.TaggingMetrics, error)
	Put(ctx context.Context, metrics *model.TaggingMetrics) error
	// List returns buckets starting at or after since, oldest first.
	List(ctx context.Context, granularity types.Granularity, since time.Time) ([]*model.TaggingMetrics, error)
	// DeleteBefore removes buckets starting before t and returns how many.
	DeleteBefore(ctx context.Context, granularity types.Granularity, t time.Time) (int, error)
}

// FileJobRepository stores file batch jobs
type FileJobRepository interface {
	Create(ctx context.Context, job *model.FileJob) (*model.FileJob, error)
	Get(ctx context.Context, userID string, id model.FileJobID) (*model.FileJob, error)
	List(ctx context.Context, userID string) ([]*model.FileJob, error)
	Update(ctx context.Context, job *model.FileJob) (*model.FileJob, error)
	UpdateProgress(ctx context.Context, userID string, id model.FileJobID, processed int) error
	SetInterrupted(ctx context.Context, userID string, id model.FileJobID) error
}

// UserRepository stores accounts
type UserRepository interface {
	// Upsert creates the user or refreshes profile fields and LastLoginAt.
	Upsert(ctx context.Context, user *model.User) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}
