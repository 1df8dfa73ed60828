package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/noteflow/pkg/domain/model"
	"github.com/secmon-lab/noteflow/pkg/domain/types"
	"github.com/secmon-lab/noteflow/pkg/usecase"
	"github.com/secmon-lab/noteflow/pkg/utils/safe"
)

// maxUploadSize bounds uploaded CSV files
const maxUploadSize = 32 << 20

type downloadResponse struct {
	URL string `json:"url"`
}

// uploadFileJobHandler accepts a multipart form with file, use_case and an
// optional version
func uploadFileJobHandler(uc *usecase.FileJobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			handleError(w, r, badRequest("invalid multipart form", err))
			return
		}

		useCase, err := types.ParseUseCase(r.FormValue("use_case"))
		if err != nil {
			handleError(w, r, badRequest("unknown use case", err))
			return
		}

		var version *int
		if v := r.FormValue("version"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				handleError(w, r, badRequest("version must be a positive integer", err))
				return
			}
			version = &n
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			handleError(w, r, badRequest("file is required", err))
			return
		}
		defer safe.Close(r.Context(), file)

		data, err := io.ReadAll(file)
		if err != nil {
			handleError(w, r, badRequest("failed to read uploaded file", err))
			return
		}

		job, err := uc.Upload(r.Context(), uid, useCase, version, header.Filename, data)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusCreated, job)
	}
}

func listFileJobsHandler(uc *usecase.FileJobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		jobs, err := uc.ListFileJobs(r.Context(), uid)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, jobs)
	}
}

func getFileJobHandler(uc *usecase.FileJobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		job, err := uc.GetFileJob(r.Context(), uid, model.FileJobID(chi.URLParam(r, "id")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, job)
	}
}

func interruptFileJobHandler(uc *usecase.FileJobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		job, err := uc.Interrupt(r.Context(), uid, model.FileJobID(chi.URLParam(r, "id")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, job)
	}
}

func downloadFileJobHandler(uc *usecase.FileJobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userIDOf(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		url, err := uc.DownloadURL(r.Context(), uid, model.FileJobID(chi.URLParam(r, "id")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeData(r.Context(), w, http.StatusOK, downloadResponse{URL: url})
	}
}
