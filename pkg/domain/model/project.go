package model

import (
	"time"

	"github.com/google/uuid"
)

// ProjectID is a UUID-based identifier for Project
type ProjectID string

// NewProjectID generates a new UUID v4 ProjectID
func NewProjectID() ProjectID {
	return ProjectID(uuid.New().String())
}

// Project is a node of a user's project tree (at most three levels deep).
type Project struct {
	ID          ProjectID  `json:"id"`
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Summary     string     `json:"summary"`
	ParentID    *ProjectID `json:"parent_id,omitempty"`
	Level       int        `json:"level"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProjectRef is the minimal projection of a project attached to notes.
type ProjectRef struct {
	ID   ProjectID `json:"id"`
	Name string    `json:"name"`
}

// IsRoot reports whether the project has no parent.
func (p *Project) IsRoot() bool {
	return p.ParentID == nil
}
