package easyprojectapi

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
)

const (
	enumerationPageSize = 100
	enumerationMaxPages = 20
)

// IssueEnumerations lists the statuses, priorities and trackers seen on a
// project's issues.
type IssueEnumerations struct {
	Statuses   []Reference `json:"statuses"`
	Priorities []Reference `json:"priorities"`
	Trackers   []Reference `json:"trackers"`

	PagesScanned int `json:"pages_scanned"`
	// Truncated is set when the page cap stopped the scan before the last
	// page, so values used only by later issues are missing.
	Truncated bool `json:"truncated"`
}

// GetIssueEnumerations derives enumerations by scanning issues, open and
// closed, a page at a time. It reads at most 20 pages of 100.
func (c *Client) GetIssueEnumerations(ctx context.Context, projectID *int) (*IssueEnumerations, error) {
	statuses := map[int]string{}
	priorities := map[int]string{}
	trackers := map[int]string{}

	out := &IssueEnumerations{}
	offset := 0
	for {
		if out.PagesScanned == enumerationMaxPages {
			out.Truncated = true
			break
		}

		page, err := c.ListIssues(ctx, ListIssuesParams{
			ProjectID: projectID,
			StatusID:  Ptr("*"),
			Limit:     Ptr(enumerationPageSize),
			Offset:    Ptr(offset),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "scan issues at offset %d", offset)
		}
		out.PagesScanned++

		if len(page.Issues) == 0 {
			break
		}
		for _, issue := range page.Issues {
			statuses[issue.Status.ID] = issue.Status.Name
			priorities[issue.Priority.ID] = issue.Priority.Name
			trackers[issue.Tracker.ID] = issue.Tracker.Name
		}

		offset += enumerationPageSize
		if offset >= page.TotalCount {
			break
		}
	}

	out.Statuses = sortedReferences(statuses)
	out.Priorities = sortedReferences(priorities)
	out.Trackers = sortedReferences(trackers)
	return out, nil
}

func sortedReferences(m map[int]string) []Reference {
	refs := make([]Reference, 0, len(m))
	for id, name := range m {
		refs = append(refs, Reference{ID: id, Name: name})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}
