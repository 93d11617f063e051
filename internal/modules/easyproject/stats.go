package easyproject

import (
	"context"
	"math"

	"easyproject-mcp/server/pkg/easyprojectapi"
)

const (
	aggregatePageSize = 100
	aggregateMaxPages = 10
)

// pageFetcher reads one page of a collection.
type pageFetcher[T any] func(ctx context.Context, offset, limit int) ([]T, easyprojectapi.Page, error)

// collected is the result of paging through a collection for an aggregate.
type collected[T any] struct {
	Items     []T
	Truncated bool
}

// collect pages through a collection, aggregatePageSize at a time, until it
// is exhausted or aggregateMaxPages pages were read.
func collect[T any](ctx context.Context, fetch pageFetcher[T]) (collected[T], error) {
	var out collected[T]
	offset := 0
	for page := 0; page < aggregateMaxPages; page++ {
		items, p, err := fetch(ctx, offset, aggregatePageSize)
		if err != nil {
			return out, err
		}
		out.Items = append(out.Items, items...)
		offset += len(items)
		if len(items) == 0 || offset >= p.TotalCount {
			return out, nil
		}
	}
	out.Truncated = true
	return out, nil
}

func issuePages(api API, p easyprojectapi.ListIssuesParams) pageFetcher[easyprojectapi.Issue] {
	return func(ctx context.Context, offset, limit int) ([]easyprojectapi.Issue, easyprojectapi.Page, error) {
		p.Offset, p.Limit = &offset, &limit
		list, err := api.ListIssues(ctx, p)
		if err != nil {
			return nil, easyprojectapi.Page{}, err
		}
		return list.Issues, list.Page, nil
	}
}

func timeEntryPages(api API, p easyprojectapi.ListTimeEntriesParams) pageFetcher[easyprojectapi.TimeEntry] {
	return func(ctx context.Context, offset, limit int) ([]easyprojectapi.TimeEntry, easyprojectapi.Page, error) {
		p.Offset, p.Limit = &offset, &limit
		list, err := api.ListTimeEntries(ctx, p)
		if err != nil {
			return nil, easyprojectapi.Page{}, err
		}
		return list.TimeEntries, list.Page, nil
	}
}

func projectPages(api API, p easyprojectapi.ListProjectsParams) pageFetcher[easyprojectapi.Project] {
	return func(ctx context.Context, offset, limit int) ([]easyprojectapi.Project, easyprojectapi.Page, error) {
		p.Offset, p.Limit = &offset, &limit
		list, err := api.ListProjects(ctx, p)
		if err != nil {
			return nil, easyprojectapi.Page{}, err
		}
		return list.Projects, list.Page, nil
	}
}

// IssueSummary classifies issues by done ratio: 100 is completed, 0 is
// pending, anything between is in progress.
type IssueSummary struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"in_progress"`
	Pending        int     `json:"pending"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completion_rate"`
	EstimatedHours float64 `json:"total_estimated_hours"`
}

// summarizeIssues counts issues. An issue is overdue when its due date is
// before today and it is not completed.
func summarizeIssues(issues []easyprojectapi.Issue, today string) IssueSummary {
	s := IssueSummary{Total: len(issues)}
	for _, i := range issues {
		switch {
		case i.DoneRatio >= 100:
			s.Completed++
		case i.DoneRatio > 0:
			s.InProgress++
		default:
			s.Pending++
		}
		if i.DueDate != "" && i.DueDate < today && i.DoneRatio < 100 {
			s.Overdue++
		}
		if i.EstimatedHours != nil {
			s.EstimatedHours += *i.EstimatedHours
		}
	}
	s.CompletionRate = percent(s.Completed, s.Total)
	return s
}

// TimeSummary totals logged hours.
type TimeSummary struct {
	Entries         int     `json:"total_entries"`
	Hours           float64 `json:"total_hours"`
	AveragePerEntry float64 `json:"average_per_entry"`
}

func summarizeTime(entries []easyprojectapi.TimeEntry) TimeSummary {
	s := TimeSummary{Entries: len(entries)}
	for _, e := range entries {
		s.Hours += e.Hours
	}
	if s.Entries > 0 {
		s.AveragePerEntry = round2(s.Hours / float64(s.Entries))
	}
	s.Hours = round2(s.Hours)
	return s
}

// percent returns part/total as a whole percentage, 0 for an empty total.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part) / float64(total) * 100)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// inRange compares YYYY-MM-DD prefixes. Nil bounds are open and a missing
// timestamp is always in range.
func inRange(ts string, from, to *string) bool {
	if ts == "" {
		return true
	}
	d := date(ts)
	if from != nil && d < *from {
		return false
	}
	if to != nil && d > *to {
		return false
	}
	return true
}

// Period echoes the date filter of an aggregate.
type Period struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
