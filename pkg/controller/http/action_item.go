package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/usecase"
)

type createActionItemRequest struct {
	Task              string                 `json:"task"`
	Doer              string                 `json:"doer"`
	Deadline          string                 `json:"deadline"`
	Theme             string                 `json:"theme"`
	Context           string                 `json:"context"`
	ExtractedEntities map[string][]string    `json:"extracted_entities"`
	Status            types.ActionItemStatus `json:"status"`
	Type              types.ActionItemType   `json:"type"`
	Projects          []model.ProjectID      `json:"projects"`
}

// updateActionItemRequest carries only the fields to change. Projects
// replaces the list when present, an empty list included.
type updateActionItemRequest struct {
	Task              *string                 `json:"task"`
	Doer              *string                 `json:"doer"`
	Deadline          *string                 `json:"deadline"`
	Theme             *string                 `json:"theme"`
	Context           *string                 `json:"context"`
	ExtractedEntities map[string][]string     `json:"extracted_entities"`
	Status            *types.ActionItemStatus `json:"status"`
	Type              *types.ActionItemType   `json:"type"`
	Projects          *[]model.ProjectID      `json:"projects"`
}

func listActionItemsHandler(uc *usecase.ActionItemUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		page, err := parsePage(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		filter := interfaces.ActionItemFilter{ListOptions: page.options()}
		if v := r.URL.Query().Get("status"); v != "" {
			status, err := types.ParseActionItemStatus(v)
			if err != nil {
				handleError(w, r, badRequest("invalid status", err))
				return
			}
			filter.Status = &status
		}
		if v := r.URL.Query().Get("project_id"); v != "" {
			pid := model.ProjectID(v)
			filter.ProjectID = &pid
		}

		items, next, err := uc.ListActionItems(r.Context(), uid, filter)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writePage(r.Context(), w, items, page, next)
	}
}

func createActionItemHandler(uc *usecase.ActionItemUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		var req createActionItemRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		item, err := uc.CreateActionItem(r.Context(), uid, &model.ActionItem{
			Task:              req.Task,
			Doer:              req.Doer,
			Deadline:          req.Deadline,
			Theme:             req.Theme,
			Context:           req.Context,
			ExtractedEntities: req.ExtractedEntities,
			Status:            req.Status,
			Type:              req.Type,
			Projects:          req.Projects,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusCreated, item)
	}
}

func getActionItemHandler(uc *usecase.ActionItemUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		item, err := uc.GetActionItem(r.Context(), uid, model.ActionItemID(chi.URLParam(r, "id")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, item)
	}
}

func updateActionItemHandler(uc *usecase.ActionItemUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		var req updateActionItemRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		upd := model.ActionItemUpdate{
			Task:              req.Task,
			Doer:              req.Doer,
			Deadline:          req.Deadline,
			Theme:             req.Theme,
			Context:           req.Context,
			ExtractedEntities: req.ExtractedEntities,
			Status:            req.Status,
			Type:              req.Type,
		}
		var projects []model.ProjectID
		if req.Projects != nil {
			projects = append([]model.ProjectID{}, (*req.Projects)...)
		}

		item, err := uc.UpdateActionItem(r.Context(), uid, model.ActionItemID(chi.URLParam(r, "id")), upd, projects)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, item)
	}
}

func deleteActionItemHandler(uc *usecase.ActionItemUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if err := uc.DeleteActionItem(r.Context(), uid, model.ActionItemID(chi.URLParam(r, "id"))); err != nil {
			handleError(w, r, err)
			return
		}
		writeMessage(r.Context(), w, "action item deleted")
	}
}

// tagActionItemsHandler runs project tagging on demand. A failed run is
// reported in the result body, not as an HTTP error.
func tagActionItemsHandler(uc *usecase.ActionItemUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		result := uc.TagActionItems(r.Context(), uid)
		writeJSON(r.Context(), w, http.StatusOK, envelope{Success: result.Success, Data: result, Message: result.Message})
	}
}
