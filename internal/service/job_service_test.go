package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mohans/arqmon/arqmon"
	"github.com/mohans/arqmon/internal/cache"
	apperrors "github.com/mohans/arqmon/internal/errors"
	"github.com/mohans/arqmon/internal/jobs"
	"github.com/mohans/arqmon/internal/log"
	"github.com/mohans/arqmon/internal/query"
)

type fixture struct {
	svc    *JobService
	rdb    *redis.Client
	client *arqmon.Client
}

func setup(t *testing.T, cfg Config) *fixture {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		s.Close()
	})
	store := arqmon.NewRedisStore(rdb, arqmon.RedisStoreOptions{AbortTimeout: 50 * time.Millisecond, AbortPollInterval: 10 * time.Millisecond})
	c, _ := cache.New(100)
	logger := log.Discard()
	resolver := jobs.NewResolver(store, c, time.UTC, logger)
	agg := jobs.NewAggregator(store, resolver, jobs.AggregatorConfig{Concurrency: 2}, logger)
	if cfg.MaxJobs == 0 {
		cfg.MaxJobs = 100
	}
	return &fixture{
		svc:    NewJobService(store, resolver, agg, cfg, logger),
		rdb:    rdb,
		client: arqmon.NewClient(rdb, arqmon.ClientOptions{}),
	}
}

func (f *fixture) finish(t *testing.T, id string, enq, start, end time.Time, ok bool) {
	t.Helper()
	raw, err := arqmon.EncodeJobResult(arqmon.JobResult{
		JobDef:     arqmon.JobDef{Function: "check_fuel_system", JobTry: 1, EnqueueTime: enq},
		Success:    ok,
		StartTime:  start,
		FinishTime: end,
		QueueName:  arqmon.DefaultQueueName,
	})
	if err != nil {
		t.Fatalf("EncodeJobResult: %v", err)
	}
	ctx := context.Background()
	f.rdb.Set(ctx, arqmon.ResultKeyPrefix+id, raw, 0)
	f.rdb.Del(ctx, arqmon.JobKeyPrefix+id)
	f.rdb.ZRem(ctx, arqmon.DefaultQueueName, id)
}

func TestJobService_List(t *testing.T) {
	f := setup(t, Config{RecentWindow: time.Hour})
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		if _, err := f.client.Enqueue(ctx, "analyze_launch_readiness", nil, nil, arqmon.EnqueueOptions{}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	f.finish(t, "ok-1", now.Add(-10*time.Minute), now.Add(-9*time.Minute), now.Add(-8*time.Minute), true)
	f.finish(t, "bad-1", now.Add(-10*time.Minute), now.Add(-9*time.Minute), now.Add(-8*time.Minute), false)
	f.finish(t, "ancient", now.Add(-5*time.Hour), now.Add(-5*time.Hour), now.Add(-5*time.Hour), true)

	p := query.DefaultParams()
	p.Statuses = []arqmon.Status{arqmon.StatusComplete}
	info, err := f.svc.List(ctx, p)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if info.Statistics.Total != 5 || info.Statistics.Queued != 3 || info.Statistics.Failed != 1 {
		t.Fatalf("statistics over unfiltered recent list: %+v", info.Statistics)
	}
	if info.PagedJobs.Count != 2 || len(info.PagedJobs.Items) != 2 {
		t.Fatalf("page: %+v", info.PagedJobs)
	}
	if len(info.Functions) != 2 {
		t.Fatalf("functions: %v", info.Functions)
	}
	if len(info.StatisticsHourly) != 60 {
		t.Fatalf("hourly buckets: %d", len(info.StatisticsHourly))
	}
}

func TestJobService_Overload(t *testing.T) {
	f := setup(t, Config{MaxJobs: 1})
	ctx := context.Background()
	f.client.Enqueue(ctx, "f", nil, nil, arqmon.EnqueueOptions{})
	f.client.Enqueue(ctx, "f", nil, nil, arqmon.EnqueueOptions{})
	if _, err := f.svc.List(ctx, query.DefaultParams()); !errors.Is(err, apperrors.ErrOverload) {
		t.Fatalf("want ErrOverload, got %v", err)
	}
	status, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status["jobs_len"] != "2" {
		t.Fatalf("status: %v", status)
	}
}

func TestJobService_GetAndAbort(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()
	id, err := f.client.Enqueue(ctx, "f", []any{1}, nil, arqmon.EnqueueOptions{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	rec, err := f.svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != arqmon.StatusQueued {
		t.Fatalf("status %s", rec.Status)
	}
	if _, err := f.svc.Get(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	// No worker is running, so the abort is never confirmed.
	if err := f.svc.Abort(ctx, id); !errors.Is(err, apperrors.ErrAbortFailed) {
		t.Fatalf("want ErrAbortFailed, got %v", err)
	}
}
