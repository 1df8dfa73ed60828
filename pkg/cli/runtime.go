package cli

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/cli/config"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/usecase"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// runtime gathers the configuration shared by serve and worker
type runtime struct {
	repo       config.Repository
	llm        config.LLM
	storage    config.Storage
	queue      config.Queue
	aiDefaults config.AIDefaults
	sentry     config.Sentry

	cacheTTL    time.Duration
	concurrency int
	linking     bool

	workQueue interfaces.WorkQueue
	blobs     interfaces.BlobStore
}

// fileJobsEnabled reports whether both the blob store and the queue were
// configured by the last build.
func (x *runtime) fileJobsEnabled() bool {
	return x.workQueue != nil && x.blobs != nil
}

func (x *runtime) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.DurationFlag{
			Name:        "config-cache-ttl",
			Usage:       "How long an active AI configuration is cached before it is read again",
			Category:    "LLM",
			Value:       usecase.DefaultConfigCacheTTL,
			Sources:     cli.EnvVars("NOTEFLOW_CONFIG_CACHE_TTL"),
			Destination: &x.cacheTTL,
		},
		&cli.IntFlag{
			Name:        "relevance-concurrency",
			Usage:       "Maximum number of projects checked for relevance in parallel",
			Category:    "LLM",
			Value:       usecase.DefaultRelevanceConcurrency,
			Sources:     cli.EnvVars("NOTEFLOW_RELEVANCE_CONCURRENCY"),
			Destination: &x.concurrency,
		},
		&cli.BoolFlag{
			Name:        "relevance-linking",
			Usage:       "Link notes to the projects found relevant",
			Category:    "LLM",
			Value:       true,
			Sources:     cli.EnvVars("NOTEFLOW_RELEVANCE_LINKING"),
			Destination: &x.linking,
		},
	}
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.llm.Flags()...)
	flags = append(flags, x.storage.Flags()...)
	flags = append(flags, x.queue.Flags()...)
	flags = append(flags, x.aiDefaults.Flags()...)
	flags = append(flags, x.sentry.Flags()...)
	return flags
}

// build wires the stores and services into use cases. cleanup releases them
// in reverse order and must be called even when an error is returned.
func (x *runtime) build(ctx context.Context, version string, extra ...usecase.Option) (uc *usecase.UseCases, repo interfaces.Repository, cleanup func(), err error) {
	var closers []func()
	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	flush, err := x.sentry.Configure(version)
	if err != nil {
		return nil, nil, cleanup, err
	}
	closers = append(closers, flush)

	repo, err = x.repo.Configure(ctx)
	if err != nil {
		return nil, nil, cleanup, goerr.Wrap(err, "failed to initialize repository")
	}
	closers = append(closers, func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	})

	client, err := x.llm.Configure(ctx)
	if err != nil {
		return nil, nil, cleanup, goerr.Wrap(err, "failed to configure LLM")
	}

	blobs, closeBlobs, err := x.storage.Configure(ctx)
	if err != nil {
		return nil, nil, cleanup, goerr.Wrap(err, "failed to configure storage")
	}
	closers = append(closers, closeBlobs)

	queue, err := x.queue.Configure(ctx)
	if err != nil {
		return nil, nil, cleanup, goerr.Wrap(err, "failed to configure queue")
	}
	if queue != nil {
		closers = append(closers, func() {
			if err := queue.Close(); err != nil {
				logging.Default().Error("failed to close queue", "error", err.Error())
			}
		})
	}

	defaults, err := x.aiDefaults.Configure()
	if err != nil {
		return nil, nil, cleanup, goerr.Wrap(err, "failed to load ai config defaults")
	}

	opts := []usecase.Option{
		usecase.WithCompletion(client),
		usecase.WithAIConfigDefaults(defaults),
		usecase.WithConfigCacheTTL(x.cacheTTL),
		usecase.WithRelevanceConcurrency(x.concurrency),
		usecase.WithRelevanceLinking(x.linking),
	}
	x.blobs, x.workQueue = blobs, queue
	if blobs != nil {
		opts = append(opts, usecase.WithBlobStore(blobs))
	}
	if queue != nil {
		opts = append(opts, usecase.WithQueue(queue))
	}
	opts = append(opts, extra...)

	logging.Default().Info("Runtime configured",
		"repository", x.repo,
		"llm", x.llm,
		"storage", x.storage,
		"queue", x.queue,
		"sentry", x.sentry,
	)

	return usecase.New(repo, opts...), repo, cleanup, nil
}
