package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/cli/config"
	"github.com/secmon-lab/noteflow/pkg/usecase"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdConfig() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage AI configurations",
		Commands: []*cli.Command{
			cmdConfigSeed(),
		},
	}
}

func cmdConfigSeed() *cli.Command {
	var repoCfg config.Repository
	var aiDefaults config.AIDefaults

	var flags []cli.Flag
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, aiDefaults.Flags()...)

	return &cli.Command{
		Name:  "seed",
		Usage: "Store the default AI configuration of every use case that has none",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			defaults, err := aiDefaults.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load ai config defaults")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			uc := usecase.New(repo, usecase.WithAIConfigDefaults(defaults))
			seeded, err := uc.AIConfig.Seed(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to seed ai configs")
			}

			if len(seeded) == 0 {
				logging.Default().Info("Every use case already has a configuration")
				return nil
			}
			for _, cfg := range seeded {
				logging.Default().Info("Seeded ai config",
					"use_case", cfg.UseCase,
					"version", cfg.Version,
					"model", cfg.Model,
				)
			}
			return nil
		},
	}
}
