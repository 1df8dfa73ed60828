package types

import "fmt"

// ActionItemStatus is the lifecycle state of an action item
type ActionItemStatus string

const (
	ActionItemStatusOpen      ActionItemStatus = "open"
	ActionItemStatusCompleted ActionItemStatus = "completed"
)

// IsValid checks if the status is valid
func (s ActionItemStatus) IsValid() bool {
	switch s {
	case ActionItemStatusOpen, ActionItemStatusCompleted:
		return true
	default:
		return false
	}
}

func (s ActionItemStatus) String() string {
	return string(s)
}

// ParseActionItemStatus parses a string into an ActionItemStatus
func ParseActionItemStatus(s string) (ActionItemStatus, error) {
	status := ActionItemStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid action item status: %s", s)
	}
	return status, nil
}

// ActionItemType classifies what kind of follow-up an action item is
type ActionItemType string

const (
	ActionItemTypeTask          ActionItemType = "task"
	ActionItemTypeReminder      ActionItemType = "reminder"
	ActionItemTypeDecisionPoint ActionItemType = "decision_point"
)

// IsValid checks if the type is valid
func (t ActionItemType) IsValid() bool {
	switch t {
	case ActionItemTypeTask, ActionItemTypeReminder, ActionItemTypeDecisionPoint:
		return true
	default:
		return false
	}
}

func (t ActionItemType) String() string {
	return string(t)
}

// NormalizeActionItemType maps unknown or empty values to task.
func NormalizeActionItemType(s string) ActionItemType {
	t := ActionItemType(s)
	if !t.IsValid() {
		return ActionItemTypeTask
	}
	return t
}

// DirectiveAction is the operation an action management directive requests
type DirectiveAction string

const (
	DirectiveActionNew      DirectiveAction = "new"
	DirectiveActionUpdate   DirectiveAction = "update"
	DirectiveActionComplete DirectiveAction = "complete"
)

// IsValid checks if the directive action is valid
func (a DirectiveAction) IsValid() bool {
	switch a {
	case DirectiveActionNew, DirectiveActionUpdate, DirectiveActionComplete:
		return true
	default:
		return false
	}
}
