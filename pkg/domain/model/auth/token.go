package auth

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Token is the authenticated identity bound to a request.
type Token struct {
	Sub       string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// TokenTTL is the lifetime of issued application tokens.
const TokenTTL = 7 * 24 * time.Hour

// NewToken creates a token for the given identity expiring after TokenTTL.
func NewToken(sub, email, name string) *Token {
	return &Token{
		Sub:       sub,
		Email:     email,
		Name:      name,
		ExpiresAt: time.Now().UTC().Add(TokenTTL),
	}
}

// IsExpired reports whether the token can no longer be used.
func (t *Token) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

type ctxTokenKey struct{}

// ErrNoToken is returned when the context carries no authenticated identity.
var ErrNoToken = goerr.New("no auth token in context")

// ContextWithToken binds token to ctx.
func ContextWithToken(ctx context.Context, token *Token) context.Context {
	return context.WithValue(ctx, ctxTokenKey{}, token)
}

// TokenFromContext returns the token bound by ContextWithToken.
func TokenFromContext(ctx context.Context) (*Token, error) {
	token, ok := ctx.Value(ctxTokenKey{}).(*Token)
	if !ok || token == nil {
		return nil, ErrNoToken
	}
	return token, nil
}

// UserID returns the subject of the token bound to ctx.
func UserID(ctx context.Context) (string, error) {
	token, err := TokenFromContext(ctx)
	if err != nil {
		return "", err
	}
	return token.Sub, nil
}
