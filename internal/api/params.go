package api

import (
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/mohans/arqmon/arqmon"
	"github.com/mohans/arqmon/internal/query"
)

func fieldError(name, msg, input string) map[string]any {
	return map[string]any{"loc": []string{"query", name}, "msg": msg, "input": input}
}

// parseListParams reads the GET /jobs query string. Invalid values are
// collected so the caller sees every problem at once.
func parseListParams(q url.Values) (query.Params, []map[string]any) {
	p := query.DefaultParams()
	var errs []map[string]any

	if v := q.Get("limit"); v != "" {
		n, err := cast.ToIntE(v)
		switch {
		case err != nil:
			errs = append(errs, fieldError("limit", "Input should be a valid integer", v))
		case n < 1 || n > query.MaxLimit:
			errs = append(errs, fieldError("limit", "Input should be between 1 and 500", v))
		default:
			p.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil || n < 0 {
			errs = append(errs, fieldError("offset", "Input should be a non-negative integer", v))
		} else {
			p.Offset = n
		}
	}
	if v := q.Get("sort_by"); v != "" {
		f, ok := query.ParseSortField(v)
		if !ok {
			errs = append(errs, fieldError("sort_by", "Input should be a sortable job field", v))
		} else {
			p.SortBy = f
		}
	}
	if v := q.Get("sort_order"); v != "" {
		switch o := query.SortOrder(strings.ToLower(v)); o {
		case query.Asc, query.Desc:
			p.SortOrder = o
		default:
			errs = append(errs, fieldError("sort_order", "Input should be 'asc' or 'desc'", v))
		}
	}
	for _, v := range q["statuses"] {
		st, ok := arqmon.ParseStatus(v)
		if !ok {
			errs = append(errs, fieldError("statuses", "Input should be a job status", v))
			continue
		}
		p.Statuses = append(p.Statuses, st)
	}
	if v := q.Get("success"); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			errs = append(errs, fieldError("success", "Input should be a valid boolean", v))
		} else {
			p.Success = &b
		}
	}
	if v := q.Get("queue_name"); v != "" {
		p.QueueName = &v
	}
	if v := q.Get("function"); v != "" {
		p.Function = &v
	}
	p.Search = q.Get("search")
	for _, name := range []string{"start_time", "finish_time"} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		ts, err := cast.ToTimeE(v)
		if err != nil {
			errs = append(errs, fieldError(name, "Input should be a valid datetime", v))
			continue
		}
		if name == "start_time" {
			p.StartTime = &ts
		} else {
			p.FinishTime = &ts
		}
	}
	return p, errs
}
