package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
)

// ActionItemID is a UUID-based identifier for ActionItem
type ActionItemID string

// NewActionItemID generates a new UUID v4 ActionItemID
func NewActionItemID() ActionItemID {
	return ActionItemID(uuid.New().String())
}

// ActionItem is a follow-up extracted from notes or created by the user.
// Projects is written only by the tagging stage and the owner.
type ActionItem struct {
	ID                ActionItemID           `json:"id"`
	UserID            string                 `json:"user_id"`
	Task              string                 `json:"task"`
	Doer              string                 `json:"doer"`
	Deadline          string                 `json:"deadline"`
	Theme             string                 `json:"theme"`
	Context           string                 `json:"context"`
	ExtractedEntities map[string][]string    `json:"extracted_entities"`
	Status            types.ActionItemStatus `json:"status"`
	Type              types.ActionItemType   `json:"type"`
	Projects          []ProjectID            `json:"projects"`
	SourceNoteID      NoteID                 `json:"source_note_id,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// ActionItemUpdate is a partial update; nil fields are left unchanged.
type ActionItemUpdate struct {
	Task              *string
	Doer              *string
	Deadline          *string
	Theme             *string
	Context           *string
	ExtractedEntities map[string][]string
	Status            *types.ActionItemStatus
	Type              *types.ActionItemType
}

// Apply writes the non-nil fields of u onto item. Projects are never touched.
func (u *ActionItemUpdate) Apply(item *ActionItem) {
	if u.Task != nil {
		item.Task = *u.Task
	}
	if u.Doer != nil {
		item.Doer = *u.Doer
	}
	if u.Deadline != nil {
		item.Deadline = *u.Deadline
	}
	if u.Theme != nil {
		item.Theme = *u.Theme
	}
	if u.Context != nil {
		item.Context = *u.Context
	}
	if u.ExtractedEntities != nil {
		item.ExtractedEntities = u.ExtractedEntities
	}
	if u.Status != nil {
		item.Status = *u.Status
	}
	if u.Type != nil {
		item.Type = *u.Type
	}
}

// IsEmpty reports whether the update changes nothing.
func (u *ActionItemUpdate) IsEmpty() bool {
	return u.Task == nil && u.Doer == nil && u.Deadline == nil && u.Theme == nil &&
		u.Context == nil && u.ExtractedEntities == nil && u.Status == nil && u.Type == nil
}
