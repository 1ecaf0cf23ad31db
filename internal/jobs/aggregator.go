package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohans/arqmon/arqmon"
	apperrors "github.com/mohans/arqmon/internal/errors"
	"github.com/mohans/arqmon/internal/metrics"
)

const DefaultConcurrency = 5

type AggregatorConfig struct {
	// Concurrency caps simultaneous resolutions; <=0 uses DefaultConcurrency.
	Concurrency int
	// TolerateErrors skips records that fail to resolve instead of failing
	// the whole listing.
	TolerateErrors bool
}

// Aggregator lists every job in the store through the Resolver.
type Aggregator struct {
	store    arqmon.Store
	resolver *Resolver
	cfg      AggregatorConfig
	logger   *slog.Logger
}

func NewAggregator(store arqmon.Store, resolver *Resolver, cfg AggregatorConfig, logger *slog.Logger) *Aggregator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Aggregator{store: store, resolver: resolver, cfg: cfg, logger: logger}
}

// CountKeys is the cheap liveness probe: definition plus result keys.
func (a *Aggregator) CountKeys(ctx context.Context) (int, error) {
	keys, err := a.store.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// ListJobs resolves every key in the store. It refuses to run when the
// store holds more than maxAllowed keys. The order of the result is the
// order in which resolutions finished.
func (a *Aggregator) ListJobs(ctx context.Context, maxAllowed int) ([]*arqmon.JobRecord, error) {
	start := time.Now()
	defer func() { metrics.ListDuration.Observe(time.Since(start).Seconds()) }()

	keys, err := a.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	metrics.KeysScanned.Set(float64(len(keys)))
	if len(keys) > maxAllowed {
		return nil, apperrors.Wrapf(apperrors.ErrOverload, "%d keys, max %d", len(keys), maxAllowed)
	}
	keys = dedupe(keys)

	var (
		mu   sync.Mutex
		jobs = make([]*arqmon.JobRecord, 0, len(keys))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			rec, err := a.resolver.Resolve(gctx, key)
			switch {
			case err == nil:
			case errors.Is(err, apperrors.ErrNotFound):
				metrics.ResolveSkipped.WithLabelValues("vanished").Inc()
				return nil
			case a.cfg.TolerateErrors:
				metrics.ResolveSkipped.WithLabelValues("error").Inc()
				a.logger.Warn("skipping unresolvable job", "key", key, "error", err)
				return nil
			default:
				return apperrors.ForJob("resolve", key.ID, err)
			}
			mu.Lock()
			jobs = append(jobs, rec)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// dedupe keeps one key per identity, preferring the result namespace.
func dedupe(keys []arqmon.JobKey) []arqmon.JobKey {
	idx := make(map[string]int, len(keys))
	out := make([]arqmon.JobKey, 0, len(keys))
	for _, k := range keys {
		if i, ok := idx[k.ID]; ok {
			if k.Namespace == arqmon.NamespaceResult {
				out[i] = k
			}
			continue
		}
		idx[k.ID] = len(out)
		out = append(out, k)
	}
	return out
}
