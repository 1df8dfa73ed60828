package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/usecase"
)

type aiConfigRequest struct {
	Model              string  `json:"model"`
	SystemPrompt       string  `json:"system_prompt"`
	UserPromptTemplate string  `json:"user_prompt_template"`
	MaxTokens          int     `json:"max_tokens"`
	Temperature        float64 `json:"temperature"`
	Description        string  `json:"description"`
	IsActive           bool    `json:"is_active"`
}

func useCaseParam(r *http.Request) (types.UseCase, error) {
	u, err := types.ParseUseCase(chi.URLParam(r, "use_case"))
	if err != nil {
		return "", badRequest("unknown use case", err)
	}
	return u, nil
}

func versionParam(r *http.Request) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || v < 1 {
		return 0, badRequest("version must be a positive integer", err)
	}
	return v, nil
}

func listAIConfigsHandler(uc *usecase.AIConfigUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := useCaseParam(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		configs, err := uc.GetAll(r.Context(), u)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, configs)
	}
}

func getActiveAIConfigHandler(uc *usecase.AIConfigUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := useCaseParam(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		cfg, err := uc.GetActive(r.Context(), u)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, cfg)
	}
}

func getAIConfigHandler(uc *usecase.AIConfigUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := useCaseParam(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		v, err := versionParam(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		cfg, err := uc.Get(r.Context(), u, v)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, cfg)
	}
}

func createAIConfigHandler(uc *usecase.AIConfigUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := useCaseParam(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		var req aiConfigRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		cfg, err := uc.Create(r.Context(), &model.AIConfig{
			UseCase:            u,
			Model:              req.Model,
			SystemPrompt:       req.SystemPrompt,
			UserPromptTemplate: req.UserPromptTemplate,
			MaxTokens:          req.MaxTokens,
			Temperature:        req.Temperature,
			Description:        req.Description,
			IsActive:           req.IsActive,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusCreated, cfg)
	}
}

func activateAIConfigHandler(uc *usecase.AIConfigUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := useCaseParam(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		v, err := versionParam(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		cfg, err := uc.SetActive(r.Context(), u, v)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, cfg)
	}
}

// deleteAIConfigHandler refuses to remove the active or a missing version
func deleteAIConfigHandler(uc *usecase.AIConfigUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := useCaseParam(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		v, err := versionParam(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		deleted, err := uc.Delete(r.Context(), u, v)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if !deleted {
			writeJSON(r.Context(), w, http.StatusBadRequest, envelope{
				Success: false,
				Message: "configuration is active or does not exist",
			})
			return
		}
		writeMessage(r.Context(), w, "configuration deleted")
	}
}
