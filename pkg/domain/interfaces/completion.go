package interfaces

import (
	"context"

	"github.com/secmon-lab/noteflow/pkg/domain/model"
)

// CompletionClient performs a single chat completion and returns the raw
// JSON text of the reply. Implementations do not retry.
type CompletionClient interface {
	Complete(ctx context.Context, req model.CompletionRequest) (string, error)
	// Available reports whether a credential is configured.
	Available() bool
}
