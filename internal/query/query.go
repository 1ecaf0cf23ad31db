// Package query filters, sorts and pages an assembled job list.
package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mohans/arqmon/arqmon"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Params describe one listing request. Nil pointers mean "no filter".
type Params struct {
	Limit      int
	Offset     int
	SortBy     SortField
	SortOrder  SortOrder
	Statuses   []arqmon.Status
	Success    *bool
	QueueName  *string
	Function   *string
	Search     string
	StartTime  *time.Time
	FinishTime *time.Time
}

// DefaultParams sorts newest first and returns the first page.
func DefaultParams() Params {
	return Params{Limit: DefaultLimit, SortBy: SortEnqueueTime, SortOrder: Desc}
}

type Page struct {
	Items  []*arqmon.JobRecord `json:"items"`
	Count  int                 `json:"count"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// Summary is computed over the unfiltered list.
type Summary struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Queued     int `json:"queued"`
	Failed     int `json:"failed"`
}

// Summarize counts statuses. Failed counts complete jobs without success;
// jobs still pending are not failures even though their success flag is false.
func Summarize(jobs []*arqmon.JobRecord) Summary {
	s := Summary{Total: len(jobs)}
	for _, j := range jobs {
		switch j.Status {
		case arqmon.StatusComplete:
			s.Completed++
			if !j.Success {
				s.Failed++
			}
		case arqmon.StatusInProgress:
			s.InProgress++
		case arqmon.StatusQueued:
			s.Queued++
		}
	}
	return s
}

// Functions lists the distinct function names in jobs, sorted.
func Functions(jobs []*arqmon.JobRecord) []string {
	seen := make(map[string]struct{}, len(jobs))
	out := []string{}
	for _, j := range jobs {
		if _, ok := seen[j.Function]; ok {
			continue
		}
		seen[j.Function] = struct{}{}
		out = append(out, j.Function)
	}
	slices.Sort(out)
	return out
}

// Filter keeps the jobs matching every filter set in p.
func Filter(jobs []*arqmon.JobRecord, p Params) []*arqmon.JobRecord {
	search := strings.ToLower(p.Search)
	out := make([]*arqmon.JobRecord, 0, len(jobs))
	for _, j := range jobs {
		if len(p.Statuses) > 0 && !slices.Contains(p.Statuses, j.Status) {
			continue
		}
		if p.Success != nil && j.Success != *p.Success {
			continue
		}
		if p.QueueName != nil && (j.QueueName == nil || *j.QueueName != *p.QueueName) {
			continue
		}
		if p.Function != nil && j.Function != *p.Function {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(j.String()), search) {
			continue
		}
		if p.StartTime != nil && startOrEnqueue(j).Before(*p.StartTime) {
			continue
		}
		if p.FinishTime != nil && finishOrEnqueue(j).After(*p.FinishTime) {
			continue
		}
		out = append(out, j)
	}
	return out
}

func startOrEnqueue(j *arqmon.JobRecord) time.Time {
	if j.StartTime != nil {
		return *j.StartTime
	}
	return j.EnqueueTime
}

func finishOrEnqueue(j *arqmon.JobRecord) time.Time {
	if j.FinishTime != nil {
		return *j.FinishTime
	}
	return j.EnqueueTime
}

// Sort orders jobs in place by p.SortBy. Jobs missing the field go last
// in both directions; ties keep their relative order.
func Sort(jobs []*arqmon.JobRecord, by SortField, order SortOrder) {
	key, ok := sortKeys[by]
	if !ok {
		key = sortKeys[SortEnqueueTime]
	}
	slices.SortStableFunc(jobs, func(a, b *arqmon.JobRecord) int {
		va, vb := key(a), key(b)
		switch {
		case va.missing && vb.missing:
			return 0
		case va.missing:
			return 1
		case vb.missing:
			return -1
		}
		c := va.compare(vb)
		if order == Desc {
			return -c
		}
		return c
	})
}

// Run filters, sorts and pages jobs.
func Run(jobs []*arqmon.JobRecord, p Params) Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	filtered := Filter(jobs, p)
	Sort(filtered, p.SortBy, p.SortOrder)

	items := []*arqmon.JobRecord{}
	if p.Offset < len(filtered) {
		end := min(p.Offset+p.Limit, len(filtered))
		items = filtered[p.Offset:end]
	}
	return Page{Items: items, Count: len(filtered), Limit: p.Limit, Offset: p.Offset}
}

// sortValue is one comparable projection of a record field.
type sortValue struct {
	missing bool
	str     string
	num     int64
	isNum   bool
}

func (a sortValue) compare(b sortValue) int {
	if a.isNum {
		return cmp.Compare(a.num, b.num)
	}
	return cmp.Compare(a.str, b.str)
}

func str(s string) sortValue { return sortValue{str: s} }
func num(n int64) sortValue  { return sortValue{num: n, isNum: true} }

var missing = sortValue{missing: true}

func timeVal(t *time.Time) sortValue {
	if t == nil {
		return missing
	}
	return num(t.UnixNano())
}

func boolVal(b bool) sortValue {
	if b {
		return num(1)
	}
	return num(0)
}

func render(v any) string { return fmt.Sprint(v) }
