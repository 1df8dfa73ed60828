package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/service/worker"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdWorker(version string) *cli.Command {
	var rt runtime
	var receiveWait time.Duration

	flags := []cli.Flag{
		&cli.DurationFlag{
			Name:        "receive-wait",
			Usage:       "Maximum time to block waiting for a queued file job",
			Value:       5 * time.Second,
			Sources:     cli.EnvVars("NOTEFLOW_WORKER_RECEIVE_WAIT"),
			Destination: &receiveWait,
		},
	}
	flags = append(flags, rt.Flags()...)

	return &cli.Command{
		Name:    "worker",
		Aliases: []string{"w"},
		Usage:   "Process queued file jobs",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, _, cleanup, err := rt.build(ctx, version)
			defer cleanup()
			if err != nil {
				return err
			}
			if !rt.fileJobsEnabled() {
				return goerr.New("file jobs require both a storage backend and a queue backend",
					goerr.V("storage", rt.storage), goerr.V("queue", rt.queue))
			}

			w := worker.NewFileJobWorker(rt.workQueue, uc.FileJob, worker.WithReceiveWait(receiveWait))
			if err := w.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start file job worker")
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
			case <-ctx.Done():
			}

			w.Stop()
			logging.Default().Info("Worker shutdown completed")
			return nil
		},
	}
}
