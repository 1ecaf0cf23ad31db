package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	p, invalid := parseListParams(r.URL.Query())
	if len(invalid) > 0 {
		writeProblem(w, validationProblem(invalid))
		return
	}
	info, err := h.svc.List(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *handler) handleHourly(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.svc.Hourly(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (h *handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *handler) handleAbortJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Abort(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "aborted": true})
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
