package queue

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
)

const (
	DefaultStream   = "NOTEFLOW_FILE_JOBS"
	DefaultSubject  = "noteflow.file_jobs"
	DefaultDurable  = "noteflow-worker"
	DefaultAckWait  = 30 * time.Minute
	defaultMaxRetry = 5
)

// NATS is a JetStream work queue. Messages that are not acked within AckWait
// are redelivered.
type NATS struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	subject  string
}

var _ interfaces.WorkQueue = &NATS{}

// NATSConfig names the stream objects used by the queue
type NATSConfig struct {
	URL        string
	Stream     string
	Subject    string
	Durable    string
	AckWait    time.Duration
	MaxDeliver int
}

func (c *NATSConfig) setDefaults() {
	if c.Stream == "" {
		c.Stream = DefaultStream
	}
	if c.Subject == "" {
		c.Subject = DefaultSubject
	}
	if c.Durable == "" {
		c.Durable = DefaultDurable
	}
	if c.AckWait <= 0 {
		c.AckWait = DefaultAckWait
	}
	if c.MaxDeliver <= 0 {
		c.MaxDeliver = defaultMaxRetry
	}
}

// NewNATS connects to the server and makes sure the stream and the durable
// pull consumer exist.
func NewNATS(ctx context.Context, cfg NATSConfig) (*NATS, error) {
	cfg.setDefaults()

	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to NATS", goerr.V("url", cfg.URL))
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, goerr.Wrap(err, "failed to create JetStream context")
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
	}); err != nil {
		nc.Close()
		return nil, goerr.Wrap(err, "failed to create stream", goerr.V("stream", cfg.Stream))
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		Durable:       cfg.Durable,
		FilterSubject: cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
	})
	if err != nil {
		nc.Close()
		return nil, goerr.Wrap(err, "failed to create consumer",
			goerr.V("stream", cfg.Stream), goerr.V("durable", cfg.Durable))
	}

	return &NATS{nc: nc, js: js, consumer: consumer, subject: cfg.Subject}, nil
}

func (q *NATS) Publish(ctx context.Context, data []byte) error {
	if _, err := q.js.Publish(ctx, q.subject, data); err != nil {
		return goerr.Wrap(err, "failed to publish message", goerr.V("subject", q.subject))
	}
	return nil
}

func (q *NATS) Receive(ctx context.Context, wait time.Duration) (interfaces.QueueMessage, error) {
	batch, err := q.consumer.Fetch(1, jetstream.FetchMaxWait(wait))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch message")
	}

	if msg, ok := <-batch.Messages(); ok {
		return &natsMessage{msg: msg}, nil
	}
	if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
		return nil, goerr.Wrap(err, "failed to receive message")
	}
	return nil, nil
}

func (q *NATS) Close() error {
	q.nc.Close()
	return nil
}

type natsMessage struct {
	msg jetstream.Msg
}

func (m *natsMessage) Data() []byte {
	return m.msg.Data()
}

func (m *natsMessage) Ack(ctx context.Context) error {
	if err := m.msg.Ack(); err != nil {
		return goerr.Wrap(err, "failed to ack message")
	}
	return nil
}

func (m *natsMessage) Nak(ctx context.Context) error {
	if err := m.msg.Nak(); err != nil {
		return goerr.Wrap(err, "failed to nak message")
	}
	return nil
}

func (m *natsMessage) InProgress(ctx context.Context) error {
	if err := m.msg.InProgress(); err != nil {
		return goerr.Wrap(err, "failed to extend ack deadline")
	}
	return nil
}
