package usecase_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/noteflow/pkg/domain/model/auth"
	"github.com/secmon-lab/noteflow/pkg/repository/memory"
	"github.com/secmon-lab/noteflow/pkg/usecase"
)

const testClientID = "client-123.apps.googleusercontent.com"

type identityProvider struct {
	key    jwk.Key
	server *httptest.Server
}

func newIdentityProvider(t *testing.T) *identityProvider {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	gt.NoError(t, err).Required()

	key, err := jwk.FromRaw(raw)
	gt.NoError(t, err).Required()
	gt.NoError(t, key.Set(jwk.KeyIDKey, "test-key")).Required()
	gt.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256)).Required()

	pub, err := key.PublicKey()
	gt.NoError(t, err).Required()
	set := jwk.NewSet()
	gt.NoError(t, set.AddKey(pub)).Required()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(server.Close)

	return &identityProvider{key: key, server: server}
}

func (p *identityProvider) idToken(t *testing.T, issuer, audience string, expires time.Time) string {
	t.Helper()

	token, err := jwt.NewBuilder().
		Issuer(issuer).
		Subject("google-sub-1").
		Audience([]string{audience}).
		IssuedAt(time.Now()).
		Expiration(expires).
		Claim("email", "alice@example.com").
		Claim("name", "Alice").
		Claim("picture", "https://example.com/alice.png").
		Build()
	gt.NoError(t, err).Required()

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, p.key))
	gt.NoError(t, err).Required()
	return string(signed)
}

func TestAuthUseCase_Login(t *testing.T) {
	ctx := context.Background()
	idp := newIdentityProvider(t)
	secret := []byte("test-secret")

	t.Run("valid ID token issues an application token", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.NewAuthUseCase(repo, testClientID, secret, usecase.WithJWKSURL(idp.server.URL))

		appToken, user, err := uc.Login(ctx, idp.idToken(t, "https://accounts.google.com", testClientID, time.Now().Add(time.Hour)))
		gt.NoError(t, err).Required()
		gt.Value(t, user.ID).Equal("google-sub-1")
		gt.Value(t, user.Email).Equal("alice@example.com")
		gt.Value(t, user.Picture).Equal("https://example.com/alice.png")

		stored, err := repo.User().Get(ctx, "google-sub-1")
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Name).Equal("Alice")

		token, err := uc.ValidateToken(ctx, appToken)
		gt.NoError(t, err).Required()
		gt.Value(t, token.Sub).Equal("google-sub-1")
		gt.Value(t, token.Email).Equal("alice@example.com")
		gt.Bool(t, token.IsExpired()).False()
	})

	t.Run("wrong audience is rejected", func(t *testing.T) {
		uc := usecase.NewAuthUseCase(memory.New(), testClientID, secret, usecase.WithJWKSURL(idp.server.URL))
		_, _, err := uc.Login(ctx, idp.idToken(t, "accounts.google.com", "other-client", time.Now().Add(time.Hour)))
		gt.Error(t, err).Is(usecase.ErrInvalidToken)
	})

	t.Run("wrong issuer is rejected", func(t *testing.T) {
		uc := usecase.NewAuthUseCase(memory.New(), testClientID, secret, usecase.WithJWKSURL(idp.server.URL))
		_, _, err := uc.Login(ctx, idp.idToken(t, "https://evil.example.com", testClientID, time.Now().Add(time.Hour)))
		gt.Error(t, err).Is(usecase.ErrInvalidToken)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		uc := usecase.NewAuthUseCase(memory.New(), testClientID, secret, usecase.WithJWKSURL(idp.server.URL))
		_, _, err := uc.Login(ctx, idp.idToken(t, "accounts.google.com", testClientID, time.Now().Add(-time.Hour)))
		gt.Error(t, err).Is(usecase.ErrInvalidToken)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		uc := usecase.NewAuthUseCase(memory.New(), testClientID, secret, usecase.WithJWKSURL(idp.server.URL))
		_, _, err := uc.Login(ctx, "not-a-jwt")
		gt.Error(t, err).Is(usecase.ErrInvalidToken)
	})
}

func TestAuthUseCase_ValidateToken(t *testing.T) {
	ctx := context.Background()
	idp := newIdentityProvider(t)
	repo := memory.New()

	issued := time.Now()
	uc := usecase.NewAuthUseCase(repo, testClientID, []byte("secret-a"),
		usecase.WithJWKSURL(idp.server.URL),
		usecase.WithClock(func() time.Time { return issued }),
	)
	appToken, _, err := uc.Login(ctx, idp.idToken(t, "accounts.google.com", testClientID, issued.Add(time.Hour)))
	gt.NoError(t, err).Required()

	t.Run("other secret is rejected", func(t *testing.T) {
		other := usecase.NewAuthUseCase(repo, testClientID, []byte("secret-b"))
		_, err := other.ValidateToken(ctx, appToken)
		gt.Error(t, err).Is(usecase.ErrInvalidToken)
	})

	t.Run("token expires after its lifetime", func(t *testing.T) {
		later := usecase.NewAuthUseCase(repo, testClientID, []byte("secret-a"),
			usecase.WithClock(func() time.Time { return issued.Add(auth.TokenTTL + time.Hour) }),
		)
		_, err := later.ValidateToken(ctx, appToken)
		gt.Error(t, err).Is(usecase.ErrInvalidToken)
	})

	t.Run("IsNoAuthn is false", func(t *testing.T) {
		gt.Bool(t, uc.IsNoAuthn()).False()
	})
}
