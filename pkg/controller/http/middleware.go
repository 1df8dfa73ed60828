package http

import (
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/model/auth"
	"github.com/secmon-lab/noteflow/pkg/usecase"
	"github.com/secmon-lab/noteflow/pkg/utils/logging"
)

// authMiddleware validates the bearer token and binds the identity to the
// request context
func authMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok && !authUC.IsNoAuthn() {
				handleError(w, r, goerr.Wrap(usecase.ErrInvalidToken, "authentication required"))
				return
			}

			token, err := authUC.ValidateToken(r.Context(), raw)
			if err != nil {
				handleError(w, r, err)
				return
			}

			ctx := auth.ContextWithToken(r.Context(), token)
			ctx = logging.With(ctx, logging.From(ctx).With("user_id", token.Sub))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// userIDOf returns the authenticated user of the request
func userIDOf(r *http.Request) (string, error) {
	uid, err := auth.UserID(r.Context())
	if err != nil {
		return "", goerr.Wrap(usecase.ErrInvalidToken, "no authenticated user", goerr.V("cause", err.Error()))
	}
	return uid, nil
}
