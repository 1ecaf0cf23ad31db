// Package api exposes the job service over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/mohans/arqmon/arqmon"
	"github.com/mohans/arqmon/internal/metrics"
	"github.com/mohans/arqmon/internal/query"
	"github.com/mohans/arqmon/internal/service"
	"github.com/mohans/arqmon/internal/stats"
)

// JobService is what the handlers need from the service layer.
type JobService interface {
	List(ctx context.Context, p query.Params) (*service.JobsInfo, error)
	Hourly(ctx context.Context) ([]stats.TimeBucket, error)
	Get(ctx context.Context, id string) (*arqmon.JobRecord, error)
	Abort(ctx context.Context, id string) error
	Status(ctx context.Context) (map[string]string, error)
}

type Options struct {
	Prefix      string
	CORSOrigins []string
	// RateLimit is requests per second across all callers; 0 disables it.
	RateLimit float64
	RateBurst int
}

type handler struct {
	svc    JobService
	logger *slog.Logger
}

func NewRouter(svc JobService, opts Options, logger *slog.Logger) http.Handler {
	h := &handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(h.recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(cors(opts.CORSOrigins))
	if opts.RateLimit > 0 {
		r.Use(rateLimit(opts.RateLimit, opts.RateBurst))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, notFoundProblem("Route not found."))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, Problem{Type: "method_not_allowed", Title: "Method not allowed", Status: http.StatusMethodNotAllowed})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	routes := func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Get("/jobs", h.handleListJobs)
		r.Get("/jobs/statistics/hourly", h.handleHourly)
		r.Get("/jobs/{id}", h.handleGetJob)
		r.Delete("/jobs/{id}", h.handleAbortJob)
	}
	if prefix := strings.Trim(opts.Prefix, "/"); prefix != "" {
		r.Route("/"+prefix, routes)
	} else {
		routes(r)
	}
	return r
}

func (h *handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				h.logger.Error("panic serving request", "path", r.URL.Path, "panic", v)
				writeProblem(w, internalProblem("An unexpected error occurred."))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func cors(origins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(origins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || slices.Contains(origins, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Headers", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET,DELETE,OPTIONS")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				writeProblem(w, Problem{
					Type:   "too_many_requests",
					Title:  "Too many requests",
					Text:   "Request rate limit exceeded.",
					Status: http.StatusTooManyRequests,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
