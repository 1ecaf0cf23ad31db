// Package jobs turns raw store keys into typed job records: the resolver
// handles one key, the aggregator fans out over the whole store.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mohans/arqmon/arqmon"
	"github.com/mohans/arqmon/internal/cache"
	apperrors "github.com/mohans/arqmon/internal/errors"
	"github.com/mohans/arqmon/internal/metrics"
)

// Resolver builds a JobRecord for one key, consulting the shared cache
// before touching the store. Only terminal records are cached.
type Resolver struct {
	store  arqmon.Store
	cache  *cache.JobCache
	loc    *time.Location
	logger *slog.Logger
}

func NewResolver(store arqmon.Store, c *cache.JobCache, loc *time.Location, logger *slog.Logger) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{store: store, cache: c, loc: loc, logger: logger}
}

// Resolve returns the record for key. Decode and store failures are
// returned as-is; a job the store no longer knows yields ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, key arqmon.JobKey) (*arqmon.JobRecord, error) {
	id := key.ID
	if rec, ok := r.cache.Get(id); ok {
		metrics.ResolveTotal.WithLabelValues("cache", "ok").Inc()
		return rec, nil
	}

	rec, err := r.resolveFromStore(ctx, id)
	if err != nil {
		metrics.ResolveTotal.WithLabelValues("store", "error").Inc()
		return nil, err
	}
	metrics.ResolveTotal.WithLabelValues("store", "ok").Inc()
	if r.cache.Set(id, rec) {
		metrics.CacheEntries.Set(float64(r.cache.Len()))
	}
	return rec, nil
}

func (r *Resolver) resolveFromStore(ctx context.Context, id string) (*arqmon.JobRecord, error) {
	status, err := r.store.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if status == arqmon.StatusComplete {
		res, err := r.store.Result(ctx, id)
		if err != nil {
			return nil, err
		}
		return r.terminalRecord(id, res), nil
	}

	def, err := r.store.Definition(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) && status != arqmon.StatusNotFound {
		// Finished between the status lookup and the read.
		if res, rerr := r.store.Result(ctx, id); rerr == nil {
			return r.terminalRecord(id, res), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if status == arqmon.StatusNotFound {
		// A definition outside the queue zset has been popped but not yet
		// marked in progress.
		r.logger.Debug("definition without queue entry", "job_id", id)
		status = arqmon.StatusQueued
	}
	return r.pendingRecord(id, status, def), nil
}

func (r *Resolver) terminalRecord(id string, res *arqmon.JobResult) *arqmon.JobRecord {
	rec := &arqmon.JobRecord{
		ID:          id,
		Status:      arqmon.StatusComplete,
		Success:     res.Success,
		EnqueueTime: res.EnqueueTime.In(r.loc),
		Function:    res.Function,
		Args:        res.Args,
		Kwargs:      res.Kwargs,
		JobTry:      intPtr(res.JobTry),
	}
	if res.Result != nil {
		s := stringify(res.Result)
		if s != "" {
			rec.Result = &s
		}
	}
	if res.QueueName != "" {
		q := res.QueueName
		rec.QueueName = &q
	}
	if !res.FinishTime.IsZero() {
		finish := res.FinishTime.In(r.loc)
		rec.FinishTime = &finish
	}
	if !res.StartTime.IsZero() {
		start := res.StartTime.In(r.loc)
		rec.StartTime = &start
		if rec.FinishTime != nil {
			d := int64(rec.FinishTime.Sub(start) / time.Second)
			if d < 0 {
				d = 0
			}
			rec.ExecutionDuration = &d
		}
	}
	return rec
}

func (r *Resolver) pendingRecord(id string, status arqmon.Status, def *arqmon.JobDef) *arqmon.JobRecord {
	return &arqmon.JobRecord{
		ID:          id,
		Status:      status,
		EnqueueTime: def.EnqueueTime.In(r.loc),
		Function:    def.Function,
		Args:        def.Args,
		Kwargs:      def.Kwargs,
		JobTry:      intPtr(def.JobTry),
	}
}

func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
