package worker

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/utils/errutil"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
)

// DefaultReceiveWait is how long one poll waits for a message
const DefaultReceiveWait = 5 * time.Second

// JobProcessor runs one file job to a terminal state
type JobProcessor interface {
	Process(ctx context.Context, msg model.FileJobMessage, keepalive func(ctx context.Context) error) error
}

// FileJobWorker pulls file job messages from the work queue and processes them
// one at a time. A message is acked only after the job reached a terminal
// state; a processing error naks it for redelivery.
type FileJobWorker struct {
	queue     interfaces.WorkQueue
	processor JobProcessor
	wait      time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
}

// Option configures FileJobWorker
type Option func(*FileJobWorker)

// WithReceiveWait sets the poll wait
func WithReceiveWait(wait time.Duration) Option {
	return func(w *FileJobWorker) {
		w.wait = wait
	}
}

// NewFileJobWorker creates a new worker consuming queue
func NewFileJobWorker(queue interfaces.WorkQueue, processor JobProcessor, opts ...Option) *FileJobWorker {
	w := &FileJobWorker{
		queue:     queue,
		processor: processor,
		wait:      DefaultReceiveWait,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the poll loop in a background goroutine. A worker can be
// started once.
func (w *FileJobWorker) Start(ctx context.Context) error {
	launched := false
	w.startOnce.Do(func() {
		logging.Default().Info("file job worker starting", "wait", w.wait.String())
		w.started.Store(true)
		launched = true
		go w.run(ctx)
	})
	if !launched {
		return goerr.New("file job worker is already started")
	}
	return nil
}

// Stop signals the worker to stop and waits until the current job finished.
// It returns immediately when the worker was never started and is safe to
// call more than once.
func (w *FileJobWorker) Stop() {
	w.stopOnce.Do(func() {
		logging.Default().Info("file job worker stopping")
		close(w.stopCh)
	})
	if !w.started.Load() {
		return
	}
	<-w.doneCh
	logging.Default().Info("file job worker stopped")
}

// Done is closed when the poll loop exited. It stays open for a worker that
// was never started.
func (w *FileJobWorker) Done() <-chan struct{} {
	return w.doneCh
}

func (w *FileJobWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			logging.Default().Info("file job worker received stop signal")
			return
		case <-ctx.Done():
			logging.Default().Info("file job worker context cancelled")
			return
		default:
		}

		if _, err := w.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			errutil.Handle(ctx, err, "file job poll failed")
			select {
			case <-time.After(w.wait):
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// Poll waits for one message and processes it. It reports whether a message
// was received.
func (w *FileJobWorker) Poll(ctx context.Context) (bool, error) {
	msg, err := w.queue.Receive(ctx, w.wait)
	if err != nil {
		return false, goerr.Wrap(err, "failed to receive message")
	}
	if msg == nil {
		return false, nil
	}

	var payload model.FileJobMessage
	if err := json.Unmarshal(msg.Data(), &payload); err != nil {
		// Redelivering an undecodable payload can never succeed
		errutil.Handle(ctx, goerr.Wrap(err, "malformed file job message", goerr.V("data", string(msg.Data()))), "dropping message")
		if err := msg.Ack(ctx); err != nil {
			return true, goerr.Wrap(err, "failed to ack malformed message")
		}
		return true, nil
	}

	logger := logging.From(ctx).With("job_id", payload.JobID, "user_id", payload.UserID)
	ctx = logging.With(ctx, logger)

	started := time.Now()
	if err := w.processor.Process(ctx, payload, msg.InProgress); err != nil {
		if nakErr := msg.Nak(ctx); nakErr != nil {
			errutil.Handle(ctx, nakErr, "failed to nak message")
		}
		return true, goerr.Wrap(err, "failed to process file job", goerr.V("job_id", payload.JobID))
	}

	if err := msg.Ack(ctx); err != nil {
		return true, goerr.Wrap(err, "failed to ack message", goerr.V("job_id", payload.JobID))
	}
	logger.Info("file job handled", "duration", time.Since(started).String())
	return true, nil
}
