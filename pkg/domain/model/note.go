package model

import (
	"time"

	"github.com/google/uuid"
)

// NoteID is a UUID-based identifier for Note
type NoteID string

// NewNoteID generates a new UUID v4 NoteID
func NewNoteID() NoteID {
	return NoteID(uuid.New().String())
}

// Note is a piece of free text written by a user. Content is immutable;
// ProjectIDs is filled by the ingestion pipeline.
type Note struct {
	ID         NoteID       `json:"id"`
	UserID     string       `json:"user_id"`
	Content    string       `json:"content"`
	ProjectIDs []ProjectID  `json:"-"`
	Projects   []ProjectRef `json:"projects"`
	CreatedAt  time.Time    `json:"created_at"`
}
