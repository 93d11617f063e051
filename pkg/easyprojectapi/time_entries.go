package easyprojectapi

import (
	"context"
	"fmt"

	"easyproject-mcp/server/internal/cache"
)

// ListTimeEntriesParams filters /time_entries.json. From and To are
// YYYY-MM-DD dates, inclusive.
type ListTimeEntriesParams struct {
	ProjectID *int
	IssueID   *int
	UserID    *int
	From      *string
	To        *string
	Limit     *int
	Offset    *int
}

func (c *Client) ListTimeEntries(ctx context.Context, p ListTimeEntriesParams) (*TimeEntryList, error) {
	q := newQuery("list_time_entries").
		optInt("project_id", p.ProjectID).
		optInt("issue_id", p.IssueID).
		optInt("user_id", p.UserID).
		optString("from", p.From).
		optString("to", p.To).
		optInt("limit", p.Limit).
		optInt("offset", p.Offset)
	return cachedGet[TimeEntryList](ctx, c, q, cache.TierTimeEntry, "/time_entries.json")
}

func (c *Client) GetTimeEntry(ctx context.Context, id int) (*TimeEntry, error) {
	q := newQuery("get_time_entry").id("id", id)
	env, err := cachedGet[timeEntryEnvelope](ctx, c, q, cache.TierTimeEntry, timeEntryPath(id))
	if err != nil {
		return nil, err
	}
	return envelopeValue(env.TimeEntry, "time_entry")
}

func (c *Client) CreateTimeEntry(ctx context.Context, in TimeEntryInput) (*TimeEntry, error) {
	return create[TimeEntry](ctx, c, "/time_entries.json", "time_entry", timeEntryEnvelopeInput{TimeEntry: in})
}

func (c *Client) UpdateTimeEntry(ctx context.Context, id int, in TimeEntryInput) (*TimeEntry, error) {
	return updateAndRefetch(ctx, c, timeEntryPath(id), "time_entry", timeEntryEnvelopeInput{TimeEntry: in},
		func(ctx context.Context) (*TimeEntry, error) {
			return c.GetTimeEntry(ctx, id)
		})
}

func (c *Client) DeleteTimeEntry(ctx context.Context, id int) error {
	return c.remove(ctx, timeEntryPath(id))
}

type timeEntryEnvelopeInput struct {
	TimeEntry TimeEntryInput `json:"time_entry"`
}

func timeEntryPath(id int) string {
	return fmt.Sprintf("/time_entries/%d.json", id)
}
