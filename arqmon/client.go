package arqmon

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/mohans/arqmon/internal/errors"
)

// Client enqueues jobs the way the queue producer does. The monitor uses it
// for demo seeding; tests use it to lay out realistic store contents.
type Client struct {
	rdb   redis.UniversalClient
	queue string
	now   func() time.Time
}

type ClientOptions struct {
	Queue string
}

func NewClient(rdb redis.UniversalClient, opts ClientOptions) *Client {
	q := opts.Queue
	if q == "" {
		q = DefaultQueueName
	}
	return &Client{rdb: rdb, queue: q, now: time.Now}
}

// EnqueueOptions mirrors the producer's per-job options.
type EnqueueOptions struct {
	JobID string
	// QueueName overrides the client's queue for this job.
	QueueName  string
	DeferUntil time.Time
	DeferBy    time.Duration
	// Expires bounds how long the definition lives; defaults to 24h past the score.
	Expires time.Duration
}

const defaultExpires = 24 * time.Hour

// Enqueue writes a pending definition and schedules it on the queue.
// It returns the job id, or ErrDuplicateJob when the id is already known.
func (c *Client) Enqueue(ctx context.Context, function string, args []any, kwargs map[string]any, opts EnqueueOptions) (string, error) {
	if c.rdb == nil {
		return "", apperrors.Wrap(apperrors.ErrInvalidArg, "nil redis client")
	}
	id := opts.JobID
	if id == "" {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	jobKey := JobKeyPrefix + id

	n, err := c.rdb.Exists(ctx, jobKey, ResultKeyPrefix+id).Result()
	if err != nil {
		return "", apperrors.ForJob("enqueue", id, err)
	}
	if n > 0 {
		return "", apperrors.ForJob("enqueue", id, apperrors.ErrDuplicateJob)
	}

	now := c.now().UTC()
	score := now
	switch {
	case !opts.DeferUntil.IsZero():
		score = opts.DeferUntil
	case opts.DeferBy > 0:
		score = now.Add(opts.DeferBy)
	}
	expires := opts.Expires
	if expires <= 0 {
		expires = defaultExpires
	}
	ttl := score.Sub(now) + expires

	payload, err := EncodeJobDef(JobDef{
		Function:    function,
		Args:        args,
		Kwargs:      kwargs,
		JobTry:      1,
		EnqueueTime: now,
	})
	if err != nil {
		return "", err
	}
	queue := c.queue
	if opts.QueueName != "" {
		queue = opts.QueueName
	}
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, jobKey, payload, ttl)
		p.ZAdd(ctx, queue, redis.Z{Score: float64(score.UnixMilli()), Member: id})
		return nil
	})
	if err != nil {
		return "", apperrors.ForJob("enqueue", id, err)
	}
	return id, nil
}

func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
