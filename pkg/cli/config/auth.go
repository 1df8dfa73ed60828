package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/usecase"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Auth holds the identity provider and token settings
type Auth struct {
	googleClientID string
	jwtSecret      string
	noAuthUID      string
	noAuthEmail    string
	noAuthName     string
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "google-client-id",
			Usage:       "Google OAuth client ID accepted as ID token audience",
			Category:    "Authentication",
			Sources:     cli.EnvVars("NOTEFLOW_GOOGLE_CLIENT_ID"),
			Destination: &x.googleClientID,
		},
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "Secret signing application tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("NOTEFLOW_JWT_SECRET"),
			Destination: &x.jwtSecret,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and run every request as the specified user ID (development only)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("NOTEFLOW_NO_AUTH"),
			Destination: &x.noAuthUID,
		},
		&cli.StringFlag{
			Name:        "no-auth-email",
			Usage:       "Email of the no-auth user",
			Category:    "Authentication",
			Value:       "dev@localhost",
			Sources:     cli.EnvVars("NOTEFLOW_NO_AUTH_EMAIL"),
			Destination: &x.noAuthEmail,
		},
		&cli.StringFlag{
			Name:        "no-auth-name",
			Usage:       "Display name of the no-auth user",
			Category:    "Authentication",
			Value:       "Developer",
			Sources:     cli.EnvVars("NOTEFLOW_NO_AUTH_NAME"),
			Destination: &x.noAuthName,
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("google_client_id", x.googleClientID),
		slog.Bool("jwt_secret_set", x.jwtSecret != ""),
		slog.String("no_auth", x.noAuthUID),
	)
}

// IsNoAuthMode reports whether authentication is skipped
func (x *Auth) IsNoAuthMode() bool {
	return x.noAuthUID != ""
}

// Configure returns the authenticator for the HTTP API
func (x *Auth) Configure(repo interfaces.Repository) (usecase.AuthUseCaseInterface, error) {
	if x.IsNoAuthMode() {
		logging.Default().Warn("Running in no-auth mode (development only)", "user_id", x.noAuthUID)
		return usecase.NewNoAuthnUseCase(repo, x.noAuthUID, x.noAuthEmail, x.noAuthName), nil
	}

	if x.googleClientID == "" {
		return nil, goerr.Wrap(ErrMissingRequired, "google-client-id is required unless --no-auth is set",
			goerr.V(FlagKey, "google-client-id"))
	}
	if len(x.jwtSecret) < 32 {
		return nil, goerr.Wrap(ErrInvalidConfig, "jwt-secret must be at least 32 bytes",
			goerr.V(FlagKey, "jwt-secret"))
	}

	return usecase.NewAuthUseCase(repo, x.googleClientID, []byte(x.jwtSecret)), nil
}
