package arqmon

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/mohans/arqmon/internal/errors"
)

func TestClient_EnqueueWritesDefinitionAndScore(t *testing.T) {
	mr, rdb := startMiniRedis(t)
	ctx := context.Background()
	client := NewClient(rdb, ClientOptions{Queue: "reports"})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return fixed }

	id, err := client.Enqueue(ctx, "build_report", []any{"q1"}, nil, EnqueueOptions{JobID: "job-1", DeferBy: time.Minute})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id != "job-1" {
		t.Fatalf("want explicit id, got %q", id)
	}
	sc, err := rdb.ZScore(ctx, "reports", id).Result()
	if err != nil {
		t.Fatalf("ZScore: %v", err)
	}
	if int64(sc) != fixed.Add(time.Minute).UnixMilli() {
		t.Fatalf("unexpected score %v", sc)
	}
	if ttl := mr.TTL(JobKeyPrefix + id); ttl != 24*time.Hour+time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	raw, _ := rdb.Get(ctx, JobKeyPrefix+id).Bytes()
	def, err := DecodeJobDef(raw)
	if err != nil {
		t.Fatalf("DecodeJobDef: %v", err)
	}
	if !def.EnqueueTime.Equal(fixed) {
		t.Fatalf("enqueue time: got %v want %v", def.EnqueueTime, fixed)
	}
}

func TestClient_EnqueueRejectsDuplicates(t *testing.T) {
	_, rdb := startMiniRedis(t)
	ctx := context.Background()
	client := NewClient(rdb, ClientOptions{})

	if _, err := client.Enqueue(ctx, "f", nil, nil, EnqueueOptions{JobID: "same"}); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	if _, err := client.Enqueue(ctx, "f", nil, nil, EnqueueOptions{JobID: "same"}); !errors.Is(err, apperrors.ErrDuplicateJob) {
		t.Fatalf("want ErrDuplicateJob, got %v", err)
	}
}

func TestClient_GeneratedIDsAreHex(t *testing.T) {
	_, rdb := startMiniRedis(t)
	client := NewClient(rdb, ClientOptions{})
	id, err := client.Enqueue(context.Background(), "f", nil, nil, EnqueueOptions{})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(id) != 32 {
		t.Fatalf("want 32 hex chars, got %q", id)
	}
}

func TestClient_EnqueueQueueOverride(t *testing.T) {
	_, rdb := startMiniRedis(t)
	ctx := context.Background()
	client := NewClient(rdb, ClientOptions{})

	id, err := client.Enqueue(ctx, "f", nil, nil, EnqueueOptions{QueueName: "urgent"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := rdb.ZScore(ctx, "urgent", id).Result(); err != nil {
		t.Fatalf("want job on override queue: %v", err)
	}
	if n, _ := rdb.ZCard(ctx, DefaultQueueName).Result(); n != 0 {
		t.Fatalf("default queue should be empty, has %d", n)
	}
}
