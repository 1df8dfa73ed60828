package http

import (
	"net/http"

	"github.com/secmon-lab/noteflow/pkg/domain/model/auth"
	"github.com/secmon-lab/noteflow/pkg/usecase"
)

type AuthUseCase = usecase.AuthUseCaseInterface

type loginRequest struct {
	IDToken string `json:"id_token"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type userMeResponse struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// authLoginHandler exchanges an identity provider ID token for an application token
func authLoginHandler(authUC AuthUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		if req.IDToken == "" && !authUC.IsNoAuthn() {
			handleError(w, r, badRequest("id_token is required", nil))
			return
		}

		token, user, err := authUC.Login(r.Context(), req.IDToken)
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeData(r.Context(), w, http.StatusOK, loginResponse{Token: token, User: user})
	}
}

// authMeHandler returns current user information
func authMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromContext(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeData(r.Context(), w, http.StatusOK, userMeResponse{
			Sub:   token.Sub,
			Email: token.Email,
			Name:  token.Name,
		})
	}
}
