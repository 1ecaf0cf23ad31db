package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/mohans/arqmon/arqmon"
	apperrors "github.com/mohans/arqmon/internal/errors"
	"github.com/mohans/arqmon/internal/jobs"
	"github.com/mohans/arqmon/internal/query"
	"github.com/mohans/arqmon/internal/stats"
)

// JobsInfo is the payload of the job listing.
type JobsInfo struct {
	PagedJobs        query.Page         `json:"paged_jobs"`
	Functions        []string           `json:"functions"`
	Statistics       query.Summary      `json:"statistics"`
	StatisticsHourly []stats.TimeBucket `json:"statistics_hourly"`
}

type Config struct {
	MaxJobs int
	// RecentWindow drops jobs neither enqueued nor started within it; 0 keeps all.
	RecentWindow time.Duration
}

// JobService answers the operator-facing questions about the queue.
type JobService struct {
	store      arqmon.Store
	resolver   *jobs.Resolver
	aggregator *jobs.Aggregator
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

func NewJobService(store arqmon.Store, resolver *jobs.Resolver, aggregator *jobs.Aggregator, cfg Config, logger *slog.Logger) *JobService {
	return &JobService{
		store:      store,
		resolver:   resolver,
		aggregator: aggregator,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// recentJobs lists every job and keeps those inside the recent window.
func (s *JobService) recentJobs(ctx context.Context) ([]*arqmon.JobRecord, error) {
	all, err := s.aggregator.ListJobs(ctx, s.cfg.MaxJobs)
	if err != nil {
		return nil, err
	}
	if s.cfg.RecentWindow <= 0 {
		return all, nil
	}
	since := s.now().Add(-s.cfg.RecentWindow)
	out := all[:0]
	for _, j := range all {
		if !j.EnqueueTime.Before(since) || (j.StartTime != nil && !j.StartTime.Before(since)) {
			out = append(out, j)
		}
	}
	return out, nil
}

// List returns one page of jobs plus counts, function names and the hourly
// statistics, all computed over the unfiltered list.
func (s *JobService) List(ctx context.Context, p query.Params) (*JobsInfo, error) {
	all, err := s.recentJobs(ctx)
	if err != nil {
		return nil, err
	}
	info := &JobsInfo{
		Functions:        query.Functions(all),
		Statistics:       query.Summarize(all),
		StatisticsHourly: stats.Generate(all, s.now()),
	}
	info.PagedJobs = query.Run(all, p)
	return info, nil
}

func (s *JobService) Hourly(ctx context.Context) ([]stats.TimeBucket, error) {
	all, err := s.recentJobs(ctx)
	if err != nil {
		return nil, err
	}
	return stats.Generate(all, s.now()), nil
}

// Get resolves a single job by its bare id.
func (s *JobService) Get(ctx context.Context, id string) (*arqmon.JobRecord, error) {
	rec, err := s.resolver.Resolve(ctx, arqmon.JobKey{Namespace: arqmon.NamespaceDefinition, ID: id})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Abort returns ErrAbortFailed when the workers did not confirm the abort.
func (s *JobService) Abort(ctx context.Context, id string) error {
	ok, err := s.store.Abort(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ForJob("abort", id, apperrors.ErrAbortFailed)
	}
	s.logger.Info("job aborted", "job_id", id)
	return nil
}

// Status reports how many job keys the store holds.
func (s *JobService) Status(ctx context.Context) (map[string]string, error) {
	n, err := s.aggregator.CountKeys(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"jobs_len": strconv.Itoa(n)}, nil
}
