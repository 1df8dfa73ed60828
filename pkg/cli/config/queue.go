package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/service/queue"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Queue configures the work queue carrying file job messages
type Queue struct {
	backend string
	url     string
	stream  string
	subject string
	durable string
	ackWait time.Duration
}

func (x *Queue) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "queue-backend",
			Usage:       "Work queue backend (nats, memory, none)",
			Category:    "Queue",
			Value:       "none",
			Sources:     cli.EnvVars("NOTEFLOW_QUEUE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "nats-url",
			Usage:       "NATS server URL",
			Category:    "Queue",
			Value:       "nats://127.0.0.1:4222",
			Sources:     cli.EnvVars("NOTEFLOW_NATS_URL"),
			Destination: &x.url,
		},
		&cli.StringFlag{
			Name:        "nats-stream",
			Usage:       "JetStream stream name",
			Category:    "Queue",
			Value:       queue.DefaultStream,
			Sources:     cli.EnvVars("NOTEFLOW_NATS_STREAM"),
			Destination: &x.stream,
		},
		&cli.StringFlag{
			Name:        "nats-subject",
			Usage:       "Subject of file job messages",
			Category:    "Queue",
			Value:       queue.DefaultSubject,
			Sources:     cli.EnvVars("NOTEFLOW_NATS_SUBJECT"),
			Destination: &x.subject,
		},
		&cli.StringFlag{
			Name:        "nats-durable",
			Usage:       "Durable consumer name",
			Category:    "Queue",
			Value:       queue.DefaultDurable,
			Sources:     cli.EnvVars("NOTEFLOW_NATS_DURABLE"),
			Destination: &x.durable,
		},
		&cli.DurationFlag{
			Name:        "queue-visibility-timeout",
			Usage:       "Time before an unacknowledged message is redelivered",
			Category:    "Queue",
			Value:       queue.DefaultAckWait,
			Sources:     cli.EnvVars("NOTEFLOW_QUEUE_VISIBILITY_TIMEOUT"),
			Destination: &x.ackWait,
		},
	}
}

func (x Queue) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("url", x.url),
		slog.String("stream", x.stream),
		slog.String("visibility_timeout", x.ackWait.String()),
	)
}

// Configure returns the work queue. The none backend returns nil, which
// disables file jobs. The memory backend only works when the server and the
// worker share a process.
func (x *Queue) Configure(ctx context.Context) (interfaces.WorkQueue, error) {
	switch x.backend {
	case "nats":
		q, err := queue.NewNATS(ctx, queue.NATSConfig{
			URL:     x.url,
			Stream:  x.stream,
			Subject: x.subject,
			Durable: x.durable,
			AckWait: x.ackWait,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure NATS queue")
		}
		logging.Default().Info("Using NATS work queue", "url", x.url, "stream", x.stream)
		return q, nil

	case "memory":
		logging.Default().Info("Using in-memory work queue (development mode)")
		return queue.NewMemory(x.ackWait), nil

	case "none", "":
		return nil, nil

	default:
		return nil, goerr.Wrap(ErrUnknownBackend, "invalid queue backend", goerr.V(BackendKey, x.backend))
	}
}
