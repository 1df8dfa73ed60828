package memory

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = goerr.New("not found")

// Memory is an in-process repository for development and tests
type Memory struct {
	aiConfig   *aiConfigRepository
	project    *projectRepository
	note       *noteRepository
	actionItem *actionItemRepository
	metrics    *taggingMetricsRepository
	fileJob    *fileJobRepository
	user       *userRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		aiConfig:   newAIConfigRepository(),
		project:    newProjectRepository(),
		note:       newNoteRepository(),
		actionItem: newActionItemRepository(),
		metrics:    newTaggingMetricsRepository(),
		fileJob:    newFileJobRepository(),
		user:       newUserRepository(),
	}
}

func (m *Memory) AIConfig() interfaces.AIConfigRepository {
	return m.aiConfig
}

func (m *Memory) Project() interfaces.ProjectRepository {
	return m.project
}

func (m *Memory) Note() interfaces.NoteRepository {
	return m.note
}

func (m *Memory) ActionItem() interfaces.ActionItemRepository {
	return m.actionItem
}

func (m *Memory) TaggingMetrics() interfaces.TaggingMetricsRepository {
	return m.metrics
}

func (m *Memory) FileJob() interfaces.FileJobRepository {
	return m.fileJob
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

func (m *Memory) Close() error {
	return nil
}
