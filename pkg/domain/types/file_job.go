package types

// FileJobStatus is the processing state of a file batch job
type FileJobStatus string

const (
	FileJobStatusPending     FileJobStatus = "pending"
	FileJobStatusProcessing  FileJobStatus = "processing"
	FileJobStatusCompleted   FileJobStatus = "completed"
	FileJobStatusFailed      FileJobStatus = "failed"
	FileJobStatusInterrupted FileJobStatus = "interrupted"
)

// IsTerminal reports whether no further processing will happen.
func (s FileJobStatus) IsTerminal() bool {
	switch s {
	case FileJobStatusCompleted, FileJobStatusFailed, FileJobStatusInterrupted:
		return true
	default:
		return false
	}
}

func (s FileJobStatus) String() string {
	return string(s)
}
