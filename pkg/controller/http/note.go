package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/usecase"
)

type noteRequest struct {
	Content string `json:"content"`
}

func listNotesHandler(uc *usecase.NoteUseCase) http.HandlerFunc {
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

		notes, next, err := uc.ListNotes(r.Context(), uid, page.options())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writePage(r.Context(), w, notes, page, next)
	}
}

// createNoteHandler stores the note and runs the ingestion pipeline before
// responding
func createNoteHandler(uc *usecase.NoteUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		var req noteRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		note, err := uc.CreateNote(r.Context(), uid, req.Content)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusCreated, note)
	}
}

func getNoteHandler(uc *usecase.NoteUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		note, err := uc.GetNote(r.Context(), uid, model.NoteID(chi.URLParam(r, "id")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, note)
	}
}

func deleteNoteHandler(uc *usecase.NoteUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if err := uc.DeleteNote(r.Context(), uid, model.NoteID(chi.URLParam(r, "id"))); err != nil {
			handleError(w, r, err)
			return
		}
		writeMessage(r.Context(), w, "note deleted")
	}
}
