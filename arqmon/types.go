package arqmon

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Status is the queue's view of a job.
// Valid values: deferred, queued, in_progress, complete, not_found.
type Status string

const (
	StatusDeferred   Status = "deferred"
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusNotFound   Status = "not_found"
)

// ParseStatus validates s against the known statuses.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusDeferred, StatusQueued, StatusInProgress, StatusComplete, StatusNotFound:
		return st, true
	}
	return "", false
}

// Namespace tells a pending definition entry apart from a result entry.
type Namespace int

const (
	NamespaceDefinition Namespace = iota
	NamespaceResult
)

const (
	JobKeyPrefix        = "arq:job:"
	ResultKeyPrefix     = "arq:result:"
	InProgressKeyPrefix = "arq:in-progress:"
	AbortJobsKey        = "arq:abort"
	DefaultQueueName    = "arq:queue"
)

func (n Namespace) Prefix() string {
	if n == NamespaceResult {
		return ResultKeyPrefix
	}
	return JobKeyPrefix
}

func (n Namespace) String() string {
	if n == NamespaceResult {
		return "result"
	}
	return "definition"
}

// JobKey is a store key split into its namespace and the job identity.
// A definition key and a result key of the same job share ID.
type JobKey struct {
	Namespace Namespace
	ID        string
}

// ParseJobKey strips the namespace prefix from a raw store key.
func ParseJobKey(raw string) (JobKey, bool) {
	switch {
	case strings.HasPrefix(raw, ResultKeyPrefix):
		return JobKey{Namespace: NamespaceResult, ID: strings.TrimPrefix(raw, ResultKeyPrefix)}, true
	case strings.HasPrefix(raw, JobKeyPrefix):
		return JobKey{Namespace: NamespaceDefinition, ID: strings.TrimPrefix(raw, JobKeyPrefix)}, true
	}
	return JobKey{}, false
}

// String renders the arq key name.
func (k JobKey) String() string { return k.Namespace.Prefix() + k.ID }

// LogValue logs the key without a store-specific prefix.
func (k JobKey) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("namespace", k.Namespace.String()),
		slog.String("id", k.ID),
	)
}

// JobDef is a decoded pending definition.
type JobDef struct {
	Function    string
	Args        []any
	Kwargs      map[string]any
	JobTry      int
	EnqueueTime time.Time
}

// JobResult is a decoded result entry. StartTime is zero when the queue
// does not record it.
type JobResult struct {
	JobDef
	Success    bool
	Result     any
	StartTime  time.Time
	FinishTime time.Time
	QueueName  string
}

// JobRecord is the typed view of one job served to operators.
// Records with status complete are terminal and never change.
type JobRecord struct {
	ID                string         `json:"id"`
	Status            Status         `json:"status"`
	Success           bool           `json:"success"`
	EnqueueTime       time.Time      `json:"enqueue_time"`
	Result            *string        `json:"result"`
	StartTime         *time.Time     `json:"start_time"`
	FinishTime        *time.Time     `json:"finish_time"`
	QueueName         *string        `json:"queue_name"`
	ExecutionDuration *int64         `json:"execution_duration"`
	Function          string         `json:"function"`
	Args              []any          `json:"args"`
	Kwargs            map[string]any `json:"kwargs"`
	JobTry            *int           `json:"job_try"`
}

// Terminal reports whether the record can no longer change.
func (r *JobRecord) Terminal() bool { return r.Status == StatusComplete }

// String renders every field; free-text search matches against it.
func (r *JobRecord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "id=%s status=%s success=%t enqueue_time=%s function=%s",
		r.ID, r.Status, r.Success, r.EnqueueTime.Format(time.RFC3339), r.Function)
	if r.Result != nil {
		fmt.Fprintf(&b, " result=%s", *r.Result)
	}
	if r.StartTime != nil {
		fmt.Fprintf(&b, " start_time=%s", r.StartTime.Format(time.RFC3339))
	}
	if r.FinishTime != nil {
		fmt.Fprintf(&b, " finish_time=%s", r.FinishTime.Format(time.RFC3339))
	}
	if r.QueueName != nil {
		fmt.Fprintf(&b, " queue_name=%s", *r.QueueName)
	}
	if r.ExecutionDuration != nil {
		fmt.Fprintf(&b, " execution_duration=%d", *r.ExecutionDuration)
	}
	if len(r.Args) > 0 {
		fmt.Fprintf(&b, " args=%v", r.Args)
	}
	if len(r.Kwargs) > 0 {
		fmt.Fprintf(&b, " kwargs=%v", r.Kwargs)
	}
	if r.JobTry != nil {
		fmt.Fprintf(&b, " job_try=%d", *r.JobTry)
	}
	return b.String()
}
