package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/cli/config"
	"github.com/secmon-lab/noteflow/pkg/usecase"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var aiDefaults config.AIDefaults
	var repoCfg config.Repository
	var users []string
	var checkDB bool

	var flags []cli.Flag
	flags = append(flags, aiDefaults.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags,
		&cli.BoolFlag{
			Name:        "check-db",
			Usage:       "Run DB consistency check against the configured repository",
			Sources:     cli.EnvVars("NOTEFLOW_CHECK_DB"),
			Destination: &checkDB,
		},
		&cli.StringSliceFlag{
			Name:        "user",
			Usage:       "User ID whose projects, notes and action items are checked (repeatable)",
			Destination: &users,
		},
	)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate AI config defaults and optionally check DB consistency",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			defaults, err := aiDefaults.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}
			logger.Info("Configuration validation passed", "use_case_count", len(defaults))
			for u, cfg := range defaults {
				logger.Info("AI config default validated",
					"use_case", u,
					"model", cfg.Model,
					"max_tokens", cfg.MaxTokens,
				)
			}

			if !checkDB {
				logger.Info("DB consistency check not requested")
				return nil
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			uc := usecase.New(repo, usecase.WithAIConfigDefaults(defaults))
			validationResult, err := uc.ValidateDB(ctx, users...)
			if err != nil {
				return goerr.Wrap(err, "DB consistency check failed")
			}

			if validationResult.HasIssues() {
				for _, issue := range validationResult.Issues {
					logger.Warn("DB consistency issue found",
						"target", issue.Target,
						"id", issue.ID,
						"message", issue.Message,
						"expected", issue.Expected,
						"actual", issue.Actual,
					)
				}

				return fmt.Errorf("DB consistency check found %d issue(s)", len(validationResult.Issues))
			}

			logger.Info("DB consistency check passed", "users", len(users))
			return nil
		},
	}
}
