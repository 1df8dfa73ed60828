package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

// FileJobID is a UUID-based identifier for FileJob
type FileJobID string

// NewFileJobID generates a new UUID v4 FileJobID
func NewFileJobID() FileJobID {
	return FileJobID(uuid.New().String())
}

// FileJob runs one AI configuration over every row of an uploaded CSV.
type FileJob struct {
	ID               FileJobID           `json:"id"`
	UserID           string              `json:"user_id"`
	UseCase          types.UseCase       `json:"use_case"`
	Version          *int                `json:"version,omitempty"`
	FileName         string              `json:"file_name"`
	InputKey         string              `json:"input_key"`
	OutputKey        string              `json:"output_key,omitempty"`
	Status           types.FileJobStatus `json:"status"`
	TotalRecords     int                 `json:"total_records"`
	ProcessedRecords int                 `json:"processed_records"`
	Interrupted      bool                `json:"interrupted"`
	Error            string              `json:"error,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// FileJobMessage is the work queue payload.
type FileJobMessage struct {
	JobID  FileJobID `json:"job_id"`
	UserID string    `json:"user_id"`
}
