package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/service/storage"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Storage configures the blob store holding file job inputs and outputs
type Storage struct {
	backend string
	bucket  string
	prefix  string
}

func (x *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Usage:       "Blob storage backend (gcs, memory, none)",
			Category:    "Storage",
			Value:       "none",
			Sources:     cli.EnvVars("NOTEFLOW_STORAGE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "storage-bucket",
			Usage:       "Cloud Storage bucket",
			Category:    "Storage",
			Sources:     cli.EnvVars("NOTEFLOW_STORAGE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "storage-prefix",
			Usage:       "Object name prefix inside the bucket",
			Category:    "Storage",
			Sources:     cli.EnvVars("NOTEFLOW_STORAGE_PREFIX"),
			Destination: &x.prefix,
		},
	}
}

func (x Storage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	)
}

// Configure returns the blob store and its closer. The none backend returns
// a nil store, which disables file jobs.
func (x *Storage) Configure(ctx context.Context) (interfaces.BlobStore, func(), error) {
	switch x.backend {
	case "gcs":
		if x.bucket == "" {
			return nil, nil, goerr.Wrap(ErrMissingRequired, "storage-bucket is required for the gcs backend",
				goerr.V(FlagKey, "storage-bucket"))
		}
		var opts []storage.GCSOption
		if x.prefix != "" {
			opts = append(opts, storage.WithObjectPrefix(x.prefix))
		}
		store, err := storage.NewGCS(ctx, x.bucket, opts...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create cloud storage client")
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logging.Default().Error("failed to close storage client", "error", err.Error())
			}
		}, nil

	case "memory":
		logging.Default().Info("Using in-memory blob store (development mode)")
		return storage.NewMemory(), func() {}, nil

	case "none", "":
		return nil, func() {}, nil

	default:
		return nil, nil, goerr.Wrap(ErrUnknownBackend, "invalid storage backend", goerr.V(BackendKey, x.backend))
	}
}
