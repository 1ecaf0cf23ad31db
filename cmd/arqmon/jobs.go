package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohans/arqmon/arqmon"
	"github.com/mohans/arqmon/internal/query"
)

func jobsCmd() *cobra.Command {
	var (
		limit, offset int
		sortBy, order string
		statuses      []string
		function      string
		search        string
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Print one page of jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := query.DefaultParams()
			p.Limit, p.Offset, p.Search = limit, offset, search
			if p.Limit < 1 || p.Limit > query.MaxLimit {
				return fmt.Errorf("--limit must be between 1 and %d", query.MaxLimit)
			}
			field, ok := query.ParseSortField(sortBy)
			if !ok {
				return fmt.Errorf("unknown sort field %q", sortBy)
			}
			p.SortBy = field
			switch o := query.SortOrder(order); o {
			case query.Asc, query.Desc:
				p.SortOrder = o
			default:
				return fmt.Errorf("--order must be asc or desc")
			}
			for _, s := range statuses {
				st, ok := arqmon.ParseStatus(s)
				if !ok {
					return fmt.Errorf("unknown status %q", s)
				}
				p.Statuses = append(p.Statuses, st)
			}
			if function != "" {
				p.Function = &function
			}

			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger.Logger)
			if err != nil {
				return err
			}
			defer a.close()

			info, err := a.service.List(cmd.Context(), p)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFUNCTION\tSTATUS\tSUCCESS\tENQUEUED\tDURATION")
			for _, j := range info.PagedJobs.Items {
				dur := "-"
				if j.ExecutionDuration != nil {
					dur = (time.Duration(*j.ExecutionDuration) * time.Second).String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n",
					j.ID, j.Function, j.Status, j.Success, j.EnqueueTime.Format(time.DateTime), dur)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			s := info.Statistics
			fmt.Fprintf(out, "\n%d of %d shown; completed %d, failed %d, in progress %d, queued %d\n",
				len(info.PagedJobs.Items), info.PagedJobs.Count, s.Completed, s.Failed, s.InProgress, s.Queued)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&limit, "limit", query.DefaultLimit, "page size")
	f.IntVar(&offset, "offset", 0, "jobs to skip")
	f.StringVar(&sortBy, "sort-by", string(query.SortEnqueueTime), "field to sort by")
	f.StringVar(&order, "order", string(query.Desc), "asc or desc")
	f.StringSliceVar(&statuses, "status", nil, "keep only these statuses")
	f.StringVar(&function, "function", "", "keep only this function")
	f.StringVar(&search, "search", "", "substring to look for in any field")
	f.BoolVar(&asJSON, "json", false, "print the full listing payload as JSON")
	return cmd
}
