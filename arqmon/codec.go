package arqmon

import (
	"encoding/json"
	"time"

	apperrors "github.com/mohans/arqmon/internal/errors"
)

// Wire shapes use the queue's short keys so payloads stay compact.
type wireDef struct {
	JobTry      int            `json:"t"`
	Function    string         `json:"f"`
	Args        []any          `json:"a"`
	Kwargs      map[string]any `json:"k"`
	EnqueueTime int64          `json:"et"`
}

type wireResult struct {
	wireDef
	Success    bool   `json:"s"`
	Result     any    `json:"r"`
	StartTime  int64  `json:"st"`
	FinishTime int64  `json:"ft"`
	QueueName  string `json:"q"`
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (d JobDef) wire() wireDef {
	return wireDef{
		JobTry:      d.JobTry,
		Function:    d.Function,
		Args:        d.Args,
		Kwargs:      d.Kwargs,
		EnqueueTime: toMillis(d.EnqueueTime),
	}
}

func (w wireDef) def() JobDef {
	return JobDef{
		Function:    w.Function,
		Args:        w.Args,
		Kwargs:      w.Kwargs,
		JobTry:      w.JobTry,
		EnqueueTime: fromMillis(w.EnqueueTime),
	}
}

// EncodeJobDef serializes a pending definition.
func EncodeJobDef(d JobDef) ([]byte, error) {
	return json.Marshal(d.wire())
}

// DecodeJobDef parses a pending definition. Payloads without a function
// name or enqueue time are rejected with ErrDecode.
func DecodeJobDef(data []byte) (*JobDef, error) {
	var w wireDef
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDecode, err.Error())
	}
	if w.Function == "" || w.EnqueueTime == 0 {
		return nil, apperrors.Wrap(apperrors.ErrDecode, "job definition missing function or enqueue time")
	}
	d := w.def()
	return &d, nil
}

// EncodeJobResult serializes a result entry.
func EncodeJobResult(r JobResult) ([]byte, error) {
	return json.Marshal(wireResult{
		wireDef:    r.JobDef.wire(),
		Success:    r.Success,
		Result:     r.Result,
		StartTime:  toMillis(r.StartTime),
		FinishTime: toMillis(r.FinishTime),
		QueueName:  r.QueueName,
	})
}

// DecodeJobResult parses a result entry. A result must carry a finish time.
func DecodeJobResult(data []byte) (*JobResult, error) {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDecode, err.Error())
	}
	if w.Function == "" || w.FinishTime == 0 {
		return nil, apperrors.Wrap(apperrors.ErrDecode, "job result missing function or finish time")
	}
	return &JobResult{
		JobDef:     w.wireDef.def(),
		Success:    w.Success,
		Result:     w.Result,
		StartTime:  fromMillis(w.StartTime),
		FinishTime: fromMillis(w.FinishTime),
		QueueName:  w.QueueName,
	}, nil
}
