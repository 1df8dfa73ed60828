package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/cli/config"
	httpctrl "github.com/secmon-lab/noteflow/pkg/controller/http"
	"github.com/secmon-lab/noteflow/pkg/service/worker"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var embedWorker bool
	var rt runtime
	var authCfg config.Auth

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("NOTEFLOW_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "embed-worker",
			Usage:       "Process file jobs inside the server process (required for the memory queue)",
			Sources:     cli.EnvVars("NOTEFLOW_EMBED_WORKER"),
			Destination: &embedWorker,
		},
	}
	flags = append(flags, rt.Flags()...)
	flags = append(flags, authCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, repo, cleanup, err := rt.build(ctx, version)
			defer cleanup()
			if err != nil {
				return err
			}

			authUC, err := authCfg.Configure(repo)
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}
			if authCfg.IsNoAuthMode() {
				logging.Default().Warn("Running in no-auth mode (development only)", "auth", authCfg)
			}

			var fileWorker *worker.FileJobWorker
			if embedWorker && rt.fileJobsEnabled() {
				fileWorker = worker.NewFileJobWorker(rt.workQueue, uc.FileJob)
				if err := fileWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start file job worker")
				}
			}

			httpHandler, err := httpctrl.New(uc,
				httpctrl.WithAuth(authUC),
				httpctrl.WithSentry(rt.sentry.Enabled()),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "embed_worker", fileWorker != nil)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if fileWorker != nil {
					fileWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if fileWorker != nil {
					fileWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
