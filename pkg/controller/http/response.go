package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/noteflow/pkg/domain/interfaces"
	"github.com/secmon-lab/noteflow/pkg/domain/model/auth"
	"github.com/secmon-lab/noteflow/pkg/service/completion"
	"github.com/secmon-lab/noteflow/pkg/usecase"
	"github.com/secmon-lab/noteflow/pkg/utils/errutil"
)

const (
	// maxBodySize bounds JSON request bodies
	maxBodySize = 1 << 20

	defaultPageSize = 20
	maxPageSize     = 100
)

type pageRequest struct {
	Page            int
	Size            int
	ContinuationKey string
}

func (p pageRequest) options() interfaces.ListOptions {
	return interfaces.ListOptions{Limit: p.Size, Cursor: p.ContinuationKey}
}

// parsePage reads page, page_size and continuation_key query parameters
func parsePage(r *http.Request) (pageRequest, error) {
	q := r.URL.Query()
	p := pageRequest{Page: 1, Size: defaultPageSize, ContinuationKey: q.Get("continuation_key")}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, badRequest("page must be a positive integer", err)
		}
		p.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return p, badRequest("page_size must be between 1 and 100", err)
		}
		p.Size = n
	}
	return p, nil
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type pageEnvelope struct {
	Success         bool   `json:"success"`
	Data            any    `json:"data"`
	Page            int    `json:"page"`
	PageSize        int    `json:"page_size"`
	HasMore         bool   `json:"has_more"`
	ContinuationKey string `json:"continuation_key,omitempty"`
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		errutil.Handle(ctx, err, "failed to encode JSON response")
	}
}

func writeData(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	writeJSON(ctx, w, statusCode, envelope{Success: true, Data: data})
}

func writeMessage(ctx context.Context, w http.ResponseWriter, msg string) {
	writeJSON(ctx, w, http.StatusOK, envelope{Success: true, Message: msg})
}

func writePage(ctx context.Context, w http.ResponseWriter, data any, page pageRequest, next string) {
	writeJSON(ctx, w, http.StatusOK, pageEnvelope{
		Success:         true,
		Data:            data,
		Page:            page.Page,
		PageSize:        page.Size,
		HasMore:         next != "",
		ContinuationKey: next,
	})
}

// statusOf maps use case sentinels to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrProjectNotFound),
		errors.Is(err, usecase.ErrNoteNotFound),
		errors.Is(err, usecase.ErrActionItemNotFound),
		errors.Is(err, usecase.ErrConfigNotFound),
		errors.Is(err, usecase.ErrFileJobNotFound):
		return http.StatusNotFound

	case errors.Is(err, usecase.ErrInvalidInput),
		errors.Is(err, usecase.ErrInvalidTemplate),
		errors.Is(err, usecase.ErrDuplicateProjectName),
		errors.Is(err, usecase.ErrMaxDepthExceeded),
		errors.Is(err, usecase.ErrProjectHasChildren),
		errors.Is(err, usecase.ErrFileJobFinished),
		errors.Is(err, usecase.ErrFileJobsDisabled):
		return http.StatusBadRequest

	case errors.Is(err, usecase.ErrInvalidToken),
		errors.Is(err, auth.ErrNoToken):
		return http.StatusUnauthorized

	case errors.Is(err, usecase.ErrAccessDenied):
		return http.StatusForbidden

	case errors.Is(err, completion.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
}

func badRequest(msg string, err error) error {
	if err == nil {
		return goerr.Wrap(usecase.ErrInvalidInput, msg)
	}
	return goerr.Wrap(usecase.ErrInvalidInput, msg, goerr.V("cause", err.Error()))
}

// decodeJSON reads the request body into v
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return badRequest("failed to read request body", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest("invalid JSON body", err)
	}
	return nil
}
