// Package queue provides interfaces.WorkQueue backends.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
)

// Memory is an in-process work queue with a visibility timeout. It serves
// single-process deployments and tests.
type Memory struct {
	mu         sync.Mutex
	pending    [][]byte
	inflight   map[uint64]*memoryMessage
	nextID     uint64
	visibility time.Duration
	notify     chan struct{}
	closed     bool
}

var _ interfaces.WorkQueue = &Memory{}

// NewMemory creates a queue that redelivers messages not acked within
// visibility.
func NewMemory(visibility time.Duration) *Memory {
	return &Memory{
		inflight:   make(map[uint64]*memoryMessage),
		visibility: visibility,
		notify:     make(chan struct{}, 1),
	}
}

func (q *Memory) Publish(ctx context.Context, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return goerr.New("queue is closed")
	}
	q.pending = append(q.pending, append([]byte(nil), data...))
	q.wake()
	return nil
}

// wake signals one waiting receiver. Caller must hold the lock.
func (q *Memory) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// requeueExpired moves inflight messages whose deadline passed back to the
// pending list. Caller must hold the lock.
func (q *Memory) requeueExpired(now time.Time) {
	for id, m := range q.inflight {
		if now.After(m.deadline) {
			delete(q.inflight, id)
			q.pending = append(q.pending, m.data)
		}
	}
}

func (q *Memory) tryReceive() *memoryMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.requeueExpired(time.Now())
	if len(q.pending) == 0 {
		return nil
	}

	data := q.pending[0]
	q.pending = q.pending[1:]
	q.nextID++
	m := &memoryMessage{
		queue:    q,
		id:       q.nextID,
		data:     data,
		deadline: time.Now().Add(q.visibility),
	}
	q.inflight[m.id] = m
	return m
}

func (q *Memory) Receive(ctx context.Context, wait time.Duration) (interfaces.QueueMessage, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		if m := q.tryReceive(); m != nil {
			return m, nil
		}

		select {
		case <-q.notify:
		case <-timer.C:
			if m := q.tryReceive(); m != nil {
				return m, nil
			}
			return nil, nil
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "receive cancelled")
		case <-time.After(q.visibility):
		}
	}
}

func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// settle removes the inflight message and optionally puts it back.
func (q *Memory) settle(id uint64, requeue bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	m, ok := q.inflight[id]
	if !ok {
		return goerr.New("message is no longer in flight", goerr.V("id", id))
	}
	delete(q.inflight, id)
	if requeue {
		q.pending = append(q.pending, m.data)
		q.wake()
	}
	return nil
}

func (q *Memory) extend(id uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	m, ok := q.inflight[id]
	if !ok {
		return goerr.New("message is no longer in flight", goerr.V("id", id))
	}
	m.deadline = time.Now().Add(q.visibility)
	return nil
}

type memoryMessage struct {
	queue    *Memory
	id       uint64
	data     []byte
	deadline time.Time
}

func (m *memoryMessage) Data() []byte {
	return m.data
}

func (m *memoryMessage) Ack(ctx context.Context) error {
	return m.queue.settle(m.id, false)
}

func (m *memoryMessage) Nak(ctx context.Context) error {
	return m.queue.settle(m.id, true)
}

func (m *memoryMessage) InProgress(ctx context.Context) error {
	return m.queue.extend(m.id)
}
