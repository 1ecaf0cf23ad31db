package arqmon

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/mohans/arqmon/internal/errors"
)

// AsynqStore observes an asynq deployment through its Inspector. Job ids
// are "<queue>:<task id>". asynq records no enqueue or start time, so the
// next-process time (pending side) or the completion time (result side)
// stands in for the enqueue time and start time stays unknown.
type AsynqStore struct {
	insp *asynq.Inspector
	// rdb reads the archive set directly; the Inspector does not expose
	// when a task was archived.
	rdb      redis.UniversalClient
	pageSize int
}

func NewAsynqStore(redisOpt asynq.RedisConnOpt) *AsynqStore {
	rdb, _ := redisOpt.MakeRedisClient().(redis.UniversalClient)
	return &AsynqStore{insp: asynq.NewInspector(redisOpt), rdb: rdb, pageSize: 500}
}

func archivedKey(queue string) string { return "asynq:{" + queue + "}:archived" }

// archivedAt reads the archive set score, which asynq sets to the unix
// second the task was archived. It is zero when the task is not there.
func (s *AsynqStore) archivedAt(ctx context.Context, queue, id string) (time.Time, error) {
	if s.rdb == nil {
		return time.Time{}, nil
	}
	sc, err := s.rdb.ZScore(ctx, archivedKey(queue), id).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, apperrors.ForJob("archive time", queue+":"+id, err)
	}
	return time.Unix(int64(sc), 0).UTC(), nil
}

type lister func(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)

func (s *AsynqStore) Keys(ctx context.Context) ([]JobKey, error) {
	queues, err := s.insp.Queues()
	if err != nil {
		return nil, apperrors.Wrap(err, "list asynq queues")
	}
	listers := []struct {
		ns   Namespace
		list lister
	}{
		{NamespaceDefinition, s.insp.ListPendingTasks},
		{NamespaceDefinition, s.insp.ListActiveTasks},
		{NamespaceDefinition, s.insp.ListScheduledTasks},
		{NamespaceDefinition, s.insp.ListRetryTasks},
		{NamespaceResult, s.insp.ListCompletedTasks},
		{NamespaceResult, s.insp.ListArchivedTasks},
	}
	var keys []JobKey
	for _, q := range queues {
		for _, l := range listers {
			for page := 1; ; page++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				tasks, err := l.list(q, asynq.PageSize(s.pageSize), asynq.Page(page))
				if err != nil {
					return nil, apperrors.Wrapf(err, "list asynq tasks in %s", q)
				}
				for _, t := range tasks {
					keys = append(keys, JobKey{Namespace: l.ns, ID: q + ":" + t.ID})
				}
				if len(tasks) < s.pageSize {
					break
				}
			}
		}
	}
	return keys, nil
}

func splitTaskID(jobID string) (queue, id string, err error) {
	i := strings.LastIndex(jobID, ":")
	if i <= 0 || i == len(jobID)-1 {
		return "", "", apperrors.ForJob("lookup", jobID, apperrors.ErrNotFound)
	}
	return jobID[:i], jobID[i+1:], nil
}

func (s *AsynqStore) info(jobID string) (*asynq.TaskInfo, error) {
	queue, id, err := splitTaskID(jobID)
	if err != nil {
		return nil, err
	}
	info, err := s.insp.GetTaskInfo(queue, id)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil, apperrors.ForJob("lookup", jobID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.ForJob("task info", jobID, err)
	}
	return info, nil
}

func asynqStatus(state asynq.TaskState) Status {
	switch state {
	case asynq.TaskStateScheduled, asynq.TaskStateRetry:
		return StatusDeferred
	case asynq.TaskStatePending, asynq.TaskStateAggregating:
		return StatusQueued
	case asynq.TaskStateActive:
		return StatusInProgress
	case asynq.TaskStateCompleted, asynq.TaskStateArchived:
		return StatusComplete
	}
	return StatusNotFound
}

func (s *AsynqStore) Status(_ context.Context, jobID string) (Status, error) {
	info, err := s.info(jobID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return StatusNotFound, nil
	}
	if err != nil {
		return "", err
	}
	return asynqStatus(info.State), nil
}

func taskDef(info *asynq.TaskInfo) JobDef {
	def := JobDef{
		Function:    info.Type,
		JobTry:      info.Retried + 1,
		EnqueueTime: info.NextProcessAt,
	}
	var kwargs map[string]any
	if err := json.Unmarshal(info.Payload, &kwargs); err == nil {
		def.Kwargs = kwargs
	} else if len(info.Payload) > 0 {
		def.Args = []any{string(info.Payload)}
	}
	return def
}

func (s *AsynqStore) Definition(_ context.Context, jobID string) (*JobDef, error) {
	info, err := s.info(jobID)
	if err != nil {
		return nil, err
	}
	def := taskDef(info)
	return &def, nil
}

// Result maps completed and archived tasks onto a result. A task archived
// without a failure (ArchiveTask) has no LastFailedAt, so the archive time
// is used as its finish time.
func (s *AsynqStore) Result(ctx context.Context, jobID string) (*JobResult, error) {
	info, err := s.info(jobID)
	if err != nil {
		return nil, err
	}
	res := &JobResult{JobDef: taskDef(info), QueueName: info.Queue}
	switch info.State {
	case asynq.TaskStateCompleted:
		res.Success = true
		res.Result = string(info.Result)
		res.FinishTime = info.CompletedAt
	case asynq.TaskStateArchived:
		res.Result = info.LastErr
		res.FinishTime = info.LastFailedAt
		if res.FinishTime.IsZero() {
			if res.FinishTime, err = s.archivedAt(ctx, info.Queue, info.ID); err != nil {
				return nil, err
			}
		}
	default:
		return nil, apperrors.ForJob("result", jobID, apperrors.ErrNotFound)
	}
	if res.FinishTime.IsZero() {
		return nil, apperrors.ForJob("result", jobID, apperrors.Wrap(apperrors.ErrDecode, "no finish time"))
	}
	res.EnqueueTime = res.FinishTime
	return res, nil
}

// Abort cancels an active task or deletes one that has not started yet.
func (s *AsynqStore) Abort(_ context.Context, jobID string) (bool, error) {
	info, err := s.info(jobID)
	if err != nil {
		return false, err
	}
	switch info.State {
	case asynq.TaskStateActive:
		err = s.insp.CancelProcessing(info.ID)
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateRetry:
		err = s.insp.DeleteTask(info.Queue, info.ID)
	default:
		return false, nil
	}
	if err != nil {
		return false, apperrors.ForJob("abort", jobID, err)
	}
	return true, nil
}

func (s *AsynqStore) Close() error {
	err := s.insp.Close()
	if s.rdb != nil {
		if cerr := s.rdb.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
