package arqmon

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

func TestAsynqStore_PendingAndScheduled(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer s.Close()

	redisOpt := asynq.RedisClientOpt{Addr: s.Addr()}
	client := asynq.NewClient(redisOpt)
	defer client.Close()

	payload, _ := json.Marshal(map[string]any{"user_id": 123})
	pending, err := client.Enqueue(asynq.NewTask("email:deliver", payload))
	if err != nil {
		t.Fatalf("enqueue pending: %v", err)
	}
	scheduled, err := client.Enqueue(asynq.NewTask("email:digest", nil), asynq.ProcessIn(time.Hour))
	if err != nil {
		t.Fatalf("enqueue scheduled: %v", err)
	}

	store := NewAsynqStore(redisOpt)
	defer store.Close()
	ctx := context.Background()

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("want 2 keys, got %d: %#v", len(keys), keys)
	}
	for _, k := range keys {
		if k.Namespace != NamespaceDefinition {
			t.Fatalf("unfinished task listed as result: %#v", k)
		}
	}

	pendingID := pending.Queue + ":" + pending.ID
	if st, err := store.Status(ctx, pendingID); err != nil || st != StatusQueued {
		t.Fatalf("want queued, got %s err=%v", st, err)
	}
	if st, _ := store.Status(ctx, scheduled.Queue+":"+scheduled.ID); st != StatusDeferred {
		t.Fatalf("want deferred, got %s", st)
	}
	if st, _ := store.Status(ctx, "default:missing"); st != StatusNotFound {
		t.Fatalf("want not_found, got %s", st)
	}

	def, err := store.Definition(ctx, pendingID)
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}
	if def.Function != "email:deliver" || def.JobTry != 1 {
		t.Fatalf("unexpected definition: %#v", def)
	}
	if v, ok := def.Kwargs["user_id"].(float64); !ok || v != 123 {
		t.Fatalf("payload not decoded into kwargs: %#v", def.Kwargs)
	}

	ok, err := store.Abort(ctx, pendingID)
	if err != nil || !ok {
		t.Fatalf("abort pending task: ok=%v err=%v", ok, err)
	}
	if st, _ := store.Status(ctx, pendingID); st != StatusNotFound {
		t.Fatalf("aborted pending task should be gone, got %s", st)
	}
}

func TestAsynqStatusMapping(t *testing.T) {
	cases := map[asynq.TaskState]Status{
		asynq.TaskStateScheduled:   StatusDeferred,
		asynq.TaskStateRetry:       StatusDeferred,
		asynq.TaskStatePending:     StatusQueued,
		asynq.TaskStateAggregating: StatusQueued,
		asynq.TaskStateActive:      StatusInProgress,
		asynq.TaskStateCompleted:   StatusComplete,
		asynq.TaskStateArchived:    StatusComplete,
	}
	for state, want := range cases {
		if got := asynqStatus(state); got != want {
			t.Errorf("%v: got %s want %s", state, got, want)
		}
	}
}

func pollUntil(t *testing.T, timeout time.Duration, f func() (bool, error)) error {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		ok, err := f()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("timeout")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestAsynqStore_ArchivedWithoutFailure(t *testing.T) {
	mr, _ := startMiniRedis(t)
	redisOpt := asynq.RedisClientOpt{Addr: mr.Addr()}
	client := asynq.NewClient(redisOpt)
	defer client.Close()
	insp := asynq.NewInspector(redisOpt)
	defer insp.Close()

	info, err := client.Enqueue(asynq.NewTask("report:build", nil))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	before := time.Now().Add(-time.Second)
	if err := insp.ArchiveTask(info.Queue, info.ID); err != nil {
		t.Fatalf("ArchiveTask: %v", err)
	}
	after := time.Now().Add(time.Second)

	store := NewAsynqStore(redisOpt)
	defer store.Close()
	ctx := context.Background()
	jobID := info.Queue + ":" + info.ID

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0].Namespace != NamespaceResult || keys[0].ID != jobID {
		t.Fatalf("archived task should be one result key, got %#v", keys)
	}
	if st, _ := store.Status(ctx, jobID); st != StatusComplete {
		t.Fatalf("want complete, got %s", st)
	}

	res, err := store.Result(ctx, jobID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if res.Success {
		t.Fatal("archived task reported as successful")
	}
	if res.FinishTime.Before(before) || res.FinishTime.After(after) {
		t.Fatalf("finish time %v should be the archive time", res.FinishTime)
	}
	if !res.EnqueueTime.Equal(res.FinishTime) || res.QueueName != "default" {
		t.Fatalf("unexpected result %#v", res)
	}

	ok, err := store.Abort(ctx, jobID)
	if err != nil || ok {
		t.Fatalf("archived task cannot be aborted: ok=%v err=%v", ok, err)
	}
}

func TestAsynqStore_ServerResults(t *testing.T) {
	mr, _ := startMiniRedis(t)
	redisOpt := asynq.RedisClientOpt{Addr: mr.Addr()}

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	mux := asynq.NewServeMux()
	mux.HandleFunc("report:ok", func(ctx context.Context, tsk *asynq.Task) error {
		_, err := tsk.ResultWriter().Write([]byte("42"))
		return err
	})
	mux.HandleFunc("report:fail", func(ctx context.Context, tsk *asynq.Task) error {
		return errors.New("boom")
	})
	mux.HandleFunc("report:slow", func(ctx context.Context, tsk *asynq.Task) error {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-release:
			return nil
		}
	})

	srv := asynq.NewServer(redisOpt, asynq.Config{Concurrency: 3, Queues: map[string]int{"default": 1}})
	if err := srv.Start(mux); err != nil {
		t.Fatalf("server start: %v", err)
	}
	defer srv.Shutdown()
	defer close(release)

	client := asynq.NewClient(redisOpt)
	defer client.Close()
	okInfo, err := client.Enqueue(asynq.NewTask("report:ok", nil), asynq.Retention(time.Hour))
	if err != nil {
		t.Fatalf("enqueue ok: %v", err)
	}
	failInfo, err := client.Enqueue(asynq.NewTask("report:fail", nil), asynq.MaxRetry(0))
	if err != nil {
		t.Fatalf("enqueue fail: %v", err)
	}

	store := NewAsynqStore(redisOpt)
	defer store.Close()
	ctx := context.Background()
	okID := okInfo.Queue + ":" + okInfo.ID
	failID := failInfo.Queue + ":" + failInfo.ID

	for _, id := range []string{okID, failID} {
		if err := pollUntil(t, 5*time.Second, func() (bool, error) {
			st, err := store.Status(ctx, id)
			return st == StatusComplete, err
		}); err != nil {
			t.Fatalf("%s did not finish: %v", id, err)
		}
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	results := 0
	for _, k := range keys {
		if k.Namespace == NamespaceResult {
			results++
		}
	}
	if results != 2 {
		t.Fatalf("want completed and archived tasks listed as results, got %#v", keys)
	}

	res, err := store.Result(ctx, okID)
	if err != nil {
		t.Fatalf("Result ok: %v", err)
	}
	if !res.Success || res.Result != "42" || res.FinishTime.IsZero() || res.Function != "report:ok" {
		t.Fatalf("unexpected completed result %#v", res)
	}

	res, err = store.Result(ctx, failID)
	if err != nil {
		t.Fatalf("Result fail: %v", err)
	}
	msg, _ := res.Result.(string)
	if res.Success || !strings.Contains(msg, "boom") || res.FinishTime.IsZero() {
		t.Fatalf("unexpected failed result %#v", res)
	}

	slowInfo, err := client.Enqueue(asynq.NewTask("report:slow", nil))
	if err != nil {
		t.Fatalf("enqueue slow: %v", err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("slow task never started")
	}
	slowID := slowInfo.Queue + ":" + slowInfo.ID
	if err := pollUntil(t, 5*time.Second, func() (bool, error) {
		st, err := store.Status(ctx, slowID)
		return st == StatusInProgress, err
	}); err != nil {
		t.Fatalf("slow task not in progress: %v", err)
	}
	ok, err := store.Abort(ctx, slowID)
	if err != nil || !ok {
		t.Fatalf("abort active task: ok=%v err=%v", ok, err)
	}
}
