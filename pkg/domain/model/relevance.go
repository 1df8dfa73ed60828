package model

// RelevanceExtraction is the transient outcome of asking whether a note
// concerns one project.
type RelevanceExtraction struct {
	IsRelevant       bool   `json:"is_relevant"`
	ExtractedContent string `json:"extracted_content"`
	Annotation       string `json:"annotation"`
}

// ProjectHierarchyEntry describes one direct child of a candidate project.
type ProjectHierarchyEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ActionDirective is one instruction returned by action management.
type ActionDirective struct {
	Action            string              `json:"action"`
	ID                string              `json:"id,omitempty"`
	Task              *string             `json:"task,omitempty"`
	Doer              *string             `json:"doer,omitempty"`
	Deadline          *string             `json:"deadline,omitempty"`
	Theme             *string             `json:"theme,omitempty"`
	Context           *string             `json:"context,omitempty"`
	ExtractedEntities map[string][]string `json:"extracted_entities,omitempty"`
	Type              *string             `json:"type,omitempty"`
}

// TaggingResult is the outcome of one project tagging run.
type TaggingResult struct {
	Success          bool           `json:"success"`
	TaggedCount      int            `json:"tagged_count"`
	TotalActionItems int            `json:"total_action_items"`
	TotalProjects    int            `json:"total_projects"`
	FailedUpdates    []ActionItemID `json:"failed_updates"`
	Message          string         `json:"message"`
	Error            string         `json:"error,omitempty"`
}
