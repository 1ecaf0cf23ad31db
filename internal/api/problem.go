package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/mohans/arqmon/internal/errors"
)

// Problem is the uniform error payload.
type Problem struct {
	Type   string           `json:"type"`
	Title  string           `json:"title"`
	Text   string           `json:"text,omitempty"`
	Status int              `json:"status"`
	Detail []map[string]any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, p Problem) {
	if p.Detail == nil {
		p.Detail = []map[string]any{}
	}
	writeJSON(w, p.Status, p)
}

func validationProblem(detail []map[string]any) Problem {
	return Problem{
		Type:   "validation_error",
		Title:  "Error validation",
		Text:   "The request was invalid.",
		Status: http.StatusUnprocessableEntity,
		Detail: detail,
	}
}

func notFoundProblem(text string) Problem {
	return Problem{Type: "not_found", Title: "Resource not found", Text: text, Status: http.StatusNotFound}
}

func internalProblem(text string) Problem {
	return Problem{Type: "internal_server_error", Title: "Internal server error", Text: text, Status: http.StatusInternalServerError}
}

// problemFor maps a service error onto the payload the caller sees. Internal
// details only go to the log.
func problemFor(err error) Problem {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return notFoundProblem("Job not found.")
	case errors.Is(err, apperrors.ErrAbortFailed):
		return Problem{Type: "bad_request", Title: "Bad request", Text: "Job abort failed.", Status: http.StatusBadRequest}
	case errors.Is(err, apperrors.ErrOverload):
		return internalProblem("There are too many jobs in the store to list them.")
	}
	return internalProblem("An unexpected error occurred.")
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	p := problemFor(err)
	level := slog.LevelWarn
	if p.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []any{"path", r.URL.Path, "status", p.Status, "error", err}
	if id, ok := apperrors.JobIDOf(err); ok {
		attrs = append(attrs, "job_id", id)
	}
	h.logger.Log(r.Context(), level, "request failed", attrs...)
	writeProblem(w, p)
}
