package usecase

import (
	"context"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/model/auth"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
)

// AuthUseCaseInterface authenticates API requests
type AuthUseCaseInterface interface {
	// Login exchanges an identity provider ID token for an application token
	Login(ctx context.Context, idToken string) (string, *model.User, error)
	ValidateToken(ctx context.Context, token string) (*auth.Token, error)
	IsNoAuthn() bool
}

const (
	// GoogleJWKSURL publishes the keys signing Google ID tokens
	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

	tokenIssuer = "noteflow"
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type AuthUseCase struct {
	repo     interfaces.Repository
	clientID string
	secret   []byte
	jwksURL  string
	now      func() time.Time
	keys     *keyCache
}

// AuthOption is a functional option for AuthUseCase
type AuthOption func(*AuthUseCase)

// WithJWKSURL replaces the Google key set location
func WithJWKSURL(url string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.jwksURL = url
	}
}

// WithClock sets the time source used for issuing and validating tokens
func WithClock(now func() time.Time) AuthOption {
	return func(uc *AuthUseCase) {
		uc.now = now
	}
}

func NewAuthUseCase(repo interfaces.Repository, clientID string, secret []byte, options ...AuthOption) *AuthUseCase {
	uc := &AuthUseCase{
		repo:     repo,
		clientID: clientID,
		secret:   secret,
		jwksURL:  GoogleJWKSURL,
		now:      time.Now,
		keys:     newKeyCache(),
	}

	for _, opt := range options {
		opt(uc)
	}

	return uc
}

// IsNoAuthn returns false for regular AuthUseCase
func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

// GoogleIDToken is the identity carried by a verified Google ID token
type GoogleIDToken struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

// Login verifies the Google ID token, records the user and issues an
// application token.
func (uc *AuthUseCase) Login(ctx context.Context, idToken string) (string, *model.User, error) {
	identity, err := uc.decodeIDToken(ctx, idToken)
	if err != nil {
		return "", nil, goerr.Wrap(ErrInvalidToken, "failed to verify ID token", goerr.V("cause", err.Error()))
	}

	user, err := uc.repo.User().Upsert(ctx, &model.User{
		ID:      identity.Sub,
		Email:   identity.Email,
		Name:    identity.Name,
		Picture: identity.Picture,
	})
	if err != nil {
		return "", nil, goerr.Wrap(err, "failed to store user", goerr.V(UserIDKey, identity.Sub))
	}

	signed, err := uc.issueToken(user)
	if err != nil {
		return "", nil, err
	}

	logging.From(ctx).Info("user logged in", "user_id", user.ID)
	return signed, user, nil
}

// decodeIDToken decodes and verifies the ID token using Google's public keys
func (uc *AuthUseCase) decodeIDToken(ctx context.Context, idToken string) (*GoogleIDToken, error) {
	keySet, err := uc.keys.get(ctx, uc.jwksURL)
	if err != nil {
		return nil, err
	}

	// Allow 10 seconds of clock skew to handle time synchronization differences
	token, err := jwt.Parse([]byte(idToken),
		jwt.WithKeySet(keySet),
		jwt.WithValidate(true),
		jwt.WithAudience(uc.clientID),
		jwt.WithAcceptableSkew(10*time.Second),
		jwt.WithClock(jwt.ClockFunc(uc.now)),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse or verify JWT token")
	}

	validIssuer := false
	for _, iss := range googleIssuers {
		if token.Issuer() == iss {
			validIssuer = true
		}
	}
	if !validIssuer {
		return nil, goerr.New("unexpected token issuer", goerr.V("issuer", token.Issuer()))
	}

	if token.Subject() == "" {
		return nil, goerr.New("sub claim not found in token")
	}

	email, err := stringClaim(token, "email", true)
	if err != nil {
		return nil, err
	}
	name, err := stringClaim(token, "name", false)
	if err != nil {
		return nil, err
	}
	picture, err := stringClaim(token, "picture", false)
	if err != nil {
		return nil, err
	}

	return &GoogleIDToken{
		Sub:     token.Subject(),
		Email:   email,
		Name:    name,
		Picture: picture,
	}, nil
}

func stringClaim(token jwt.Token, key string, required bool) (string, error) {
	v, ok := token.Get(key)
	if !ok {
		if required {
			return "", goerr.New("claim not found in token", goerr.V("claim", key))
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", goerr.New("claim is not a string", goerr.V("claim", key))
	}
	return s, nil
}

func (uc *AuthUseCase) issueToken(user *model.User) (string, error) {
	now := uc.now()
	token, err := jwt.NewBuilder().
		Issuer(tokenIssuer).
		Subject(user.ID).
		IssuedAt(now).
		Expiration(now.Add(auth.TokenTTL)).
		Claim("email", user.Email).
		Claim("name", user.Name).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build token")
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, uc.secret))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign token")
	}
	return string(signed), nil
}

// ValidateToken verifies an application token and returns its identity
func (uc *AuthUseCase) ValidateToken(ctx context.Context, raw string) (*auth.Token, error) {
	token, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, uc.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithClock(jwt.ClockFunc(uc.now)),
	)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidToken, "failed to verify token", goerr.V("cause", err.Error()))
	}
	if token.Subject() == "" {
		return nil, goerr.Wrap(ErrInvalidToken, "token has no subject")
	}

	email, _ := stringClaim(token, "email", false)
	name, _ := stringClaim(token, "name", false)

	return &auth.Token{
		Sub:       token.Subject(),
		Email:     email,
		Name:      name,
		ExpiresAt: token.Expiration(),
	}, nil
}
