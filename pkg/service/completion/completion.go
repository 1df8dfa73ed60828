// Package completion provides interfaces.CompletionClient backends.
package completion

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
)

// ErrUnavailable is returned when no language model credential is configured
var ErrUnavailable = goerr.New("completion service unavailable")

// ErrEmptyResponse is returned when the model replied without any content
var ErrEmptyResponse = goerr.New("empty completion response")

// Unavailable is the client used when no backend is configured. Every call
// fails with ErrUnavailable.
type Unavailable struct{}

var _ interfaces.CompletionClient = Unavailable{}

func (Unavailable) Complete(ctx context.Context, req model.CompletionRequest) (string, error) {
	return "", goerr.Wrap(ErrUnavailable, "no completion backend configured", goerr.V("model", req.Model))
}

func (Unavailable) Available() bool {
	return false
}
