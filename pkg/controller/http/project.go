package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/usecase"
)

type projectRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	ParentID    *model.ProjectID `json:"parent_id,omitempty"`
}

func listProjectsHandler(uc *usecase.ProjectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		projects, err := uc.ListProjects(r.Context(), uid)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, projects)
	}
}

func createProjectHandler(uc *usecase.ProjectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		var req projectRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		project, err := uc.CreateProject(r.Context(), uid, req.Name, req.Description, req.ParentID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusCreated, project)
	}
}

func getProjectHandler(uc *usecase.ProjectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		project, err := uc.GetProject(r.Context(), uid, model.ProjectID(chi.URLParam(r, "id")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, project)
	}
}

func updateProjectHandler(uc *usecase.ProjectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		var req projectRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		project, err := uc.UpdateProject(r.Context(), uid, model.ProjectID(chi.URLParam(r, "id")), req.Name, req.Description)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, project)
	}
}

func deleteProjectHandler(uc *usecase.ProjectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if err := uc.DeleteProject(r.Context(), uid, model.ProjectID(chi.URLParam(r, "id"))); err != nil {
			handleError(w, r, err)
			return
		}
		writeMessage(r.Context(), w, "project deleted")
	}
}
