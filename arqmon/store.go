package arqmon

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/mohans/arqmon/internal/errors"
)

// Store is the read side of a job queue plus its abort hook.
// Implementations must be safe for concurrent use.
type Store interface {
	// Keys lists every definition and result key currently in the store.
	Keys(ctx context.Context) ([]JobKey, error)
	// Status is the queue's native status lookup for a bare job id.
	Status(ctx context.Context, jobID string) (Status, error)
	// Definition reads the pending definition. Missing entries yield ErrNotFound.
	Definition(ctx context.Context, jobID string) (*JobDef, error)
	// Result reads the result entry. Missing entries yield ErrNotFound.
	Result(ctx context.Context, jobID string) (*JobResult, error)
	// Abort asks the workers to cancel the job and reports whether they did.
	Abort(ctx context.Context, jobID string) (bool, error)
	Close() error
}

// CancelledResult is what workers store as the result of an aborted job.
const CancelledResult = "CancelledError"

type RedisStoreOptions struct {
	QueueName         string
	AbortTimeout      time.Duration
	AbortPollInterval time.Duration
	ScanCount         int64
}

// RedisStore reads an arq-style queue straight out of Redis.
type RedisStore struct {
	rdb          redis.UniversalClient
	queue        string
	abortTimeout time.Duration
	abortPoll    time.Duration
	scanCount    int64
	now          func() time.Time
}

func NewRedisStore(rdb redis.UniversalClient, opts RedisStoreOptions) *RedisStore {
	q := opts.QueueName
	if q == "" {
		q = DefaultQueueName
	}
	timeout := opts.AbortTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	poll := opts.AbortPollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	count := opts.ScanCount
	if count <= 0 {
		count = 1000
	}
	return &RedisStore{
		rdb:          rdb,
		queue:        q,
		abortTimeout: timeout,
		abortPoll:    poll,
		scanCount:    count,
		now:          time.Now,
	}
}

func (s *RedisStore) Keys(ctx context.Context) ([]JobKey, error) {
	var keys []JobKey
	for _, prefix := range []string{JobKeyPrefix, ResultKeyPrefix} {
		iter := s.rdb.Scan(ctx, 0, prefix+"*", s.scanCount).Iterator()
		for iter.Next(ctx) {
			if k, ok := ParseJobKey(iter.Val()); ok {
				keys = append(keys, k)
			}
		}
		if err := iter.Err(); err != nil {
			return nil, apperrors.Wrapf(err, "scan %s", prefix)
		}
	}
	return keys, nil
}

func (s *RedisStore) Status(ctx context.Context, jobID string) (Status, error) {
	var resultExists, inProgressExists *redis.IntCmd
	var score *redis.FloatCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		resultExists = p.Exists(ctx, ResultKeyPrefix+jobID)
		inProgressExists = p.Exists(ctx, InProgressKeyPrefix+jobID)
		score = p.ZScore(ctx, s.queue, jobID)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", apperrors.ForJob("status", jobID, err)
	}
	switch {
	case resultExists.Val() > 0:
		return StatusComplete, nil
	case inProgressExists.Val() > 0:
		return StatusInProgress, nil
	}
	sc, err := score.Result()
	if errors.Is(err, redis.Nil) {
		return StatusNotFound, nil
	}
	if err != nil {
		return "", apperrors.ForJob("status", jobID, err)
	}
	if int64(sc) > s.now().UnixMilli() {
		return StatusDeferred, nil
	}
	return StatusQueued, nil
}

func (s *RedisStore) get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "key %s", key)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "get %s", key)
	}
	return raw, nil
}

func (s *RedisStore) Definition(ctx context.Context, jobID string) (*JobDef, error) {
	raw, err := s.get(ctx, JobKeyPrefix+jobID)
	if err != nil {
		return nil, err
	}
	def, err := DecodeJobDef(raw)
	if err != nil {
		return nil, apperrors.ForJob("decode definition", jobID, err)
	}
	return def, nil
}

func (s *RedisStore) Result(ctx context.Context, jobID string) (*JobResult, error) {
	raw, err := s.get(ctx, ResultKeyPrefix+jobID)
	if err != nil {
		return nil, err
	}
	res, err := DecodeJobResult(raw)
	if err != nil {
		return nil, apperrors.ForJob("decode result", jobID, err)
	}
	return res, nil
}

// Abort pulls a deferred job forward so a worker picks it up at once, files
// the abort request and waits up to the abort timeout for the cancelled result.
func (s *RedisStore) Abort(ctx context.Context, jobID string) (bool, error) {
	nowMs := s.now().UnixMilli()
	sc, err := s.rdb.ZScore(ctx, s.queue, jobID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, apperrors.ForJob("abort", jobID, err)
	}
	if err == nil && int64(sc) > nowMs {
		_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.ZRem(ctx, s.queue, jobID)
			p.ZAdd(ctx, s.queue, redis.Z{Score: 1, Member: jobID})
			return nil
		})
		if err != nil {
			return false, apperrors.ForJob("reschedule", jobID, err)
		}
	}
	if err := s.rdb.ZAdd(ctx, AbortJobsKey, redis.Z{Score: float64(nowMs), Member: jobID}).Err(); err != nil {
		return false, apperrors.ForJob("abort", jobID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.abortTimeout)
	defer cancel()
	ticker := time.NewTicker(s.abortPoll)
	defer ticker.Stop()
	for {
		res, err := s.Result(ctx, jobID)
		switch {
		case err == nil:
			return !res.Success && isCancelled(res.Result), nil
		case !errors.Is(err, apperrors.ErrNotFound):
			if ctx.Err() != nil {
				return false, nil
			}
			return false, err
		}
		select {
		case <-ctx.Done():
			return false, nil
		case <-ticker.C:
		}
	}
}

func isCancelled(result any) bool {
	s, ok := result.(string)
	return ok && strings.Contains(s, CancelledResult)
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
