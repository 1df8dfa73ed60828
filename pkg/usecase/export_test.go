package usecase

import "time"

// TrimJSON is exported for testing
var TrimJSON = trimJSON

// ClassifyTaggingError is exported for testing
var ClassifyTaggingError = classifyTaggingError

// SetNow replaces the clock of the action manager for testing
func (m *ActionManager) SetNow(now func() time.Time) {
	m.now = now
}

// SetNow replaces the clock of the metrics collector for testing
func (uc *MetricsUseCase) SetNow(now func() time.Time) {
	uc.now = now
}
