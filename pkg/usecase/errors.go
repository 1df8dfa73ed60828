package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrProjectNotFound    = errors.New("project not found")
	ErrNoteNotFound       = errors.New("note not found")
	ErrActionItemNotFound = errors.New("action item not found")
	ErrConfigNotFound     = errors.New("ai config not found")
	ErrFileJobNotFound    = errors.New("file job not found")

	// Validation errors
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidTemplate      = errors.New("invalid prompt template")
	ErrDuplicateProjectName = errors.New("project name already exists among siblings")
	ErrMaxDepthExceeded     = errors.New("project hierarchy is limited to three levels")
	ErrProjectHasChildren   = errors.New("project has sub-projects")

	// LLM response errors
	ErrMissingResponseKey = errors.New("missing key in LLM response")
	ErrMalformedResponse  = errors.New("malformed LLM response")

	// Access control errors
	ErrAccessDenied = errors.New("access denied")
	ErrInvalidToken = errors.New("invalid token")

	// State errors
	ErrFileJobFinished = errors.New("file job already finished")
)

// Context keys for error values
const (
	UserIDKey       = "user_id"
	ProjectIDKey    = "project_id"
	NoteIDKey       = "note_id"
	ActionItemIDKey = "action_item_id"
	UseCaseKey      = "use_case"
	VersionKey      = "version"
	FileJobIDKey    = "file_job_id"
)
