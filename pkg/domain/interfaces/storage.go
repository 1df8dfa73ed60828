package interfaces

import (
	"context"
	"time"
)

// BlobStore keeps uploaded and generated files
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// QueueMessage is one delivery of a work queue message. A message that is
// neither acked nor naked is redelivered after the visibility timeout.
type QueueMessage interface {
	Data() []byte
	Ack(ctx context.Context) error
	Nak(ctx context.Context) error
	// InProgress extends the visibility timeout of a long running delivery.
	InProgress(ctx context.Context) error
}

// WorkQueue is an at-least-once queue
type WorkQueue interface {
	Publish(ctx context.Context, data []byte) error
	// Receive waits up to wait for one message and returns nil when none
	// arrived.
	Receive(ctx context.Context, wait time.Duration) (QueueMessage, error)
	Close() error
}
