package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/model/auth"
)

// NoAuthnUseCase authenticates every request as one fixed user (for development/testing)
type NoAuthnUseCase struct {
	repo  interfaces.Repository
	sub   string
	email string
	name  string
}

// NewNoAuthnUseCase creates a new NoAuthnUseCase instance with specified user info
func NewNoAuthnUseCase(repo interfaces.Repository, sub, email, name string) *NoAuthnUseCase {
	return &NoAuthnUseCase{
		repo:  repo,
		sub:   sub,
		email: email,
		name:  name,
	}
}

// Login records the fixed user and returns a placeholder token
func (uc *NoAuthnUseCase) Login(ctx context.Context, idToken string) (string, *model.User, error) {
	user, err := uc.repo.User().Upsert(ctx, &model.User{
		ID:    uc.sub,
		Email: uc.email,
		Name:  uc.name,
	})
	if err != nil {
		return "", nil, goerr.Wrap(err, "failed to store user", goerr.V(UserIDKey, uc.sub))
	}
	return "noauthn", user, nil
}

// ValidateToken always returns a token for the specified user
func (uc *NoAuthnUseCase) ValidateToken(ctx context.Context, token string) (*auth.Token, error) {
	return auth.NewToken(uc.sub, uc.email, uc.name), nil
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
