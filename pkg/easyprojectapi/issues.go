package easyprojectapi

import (
	"context"
	"fmt"

	"easyproject-mcp/server/internal/cache"
)

// ListIssuesParams filters /issues.json. StatusID accepts "open", "closed",
// "*" or a numeric id.
type ListIssuesParams struct {
	ProjectID    *int
	StatusID     *string
	PriorityID   *int
	TrackerID    *int
	AssignedToID *int
	Limit        *int
	Offset       *int
	Include      []string
	Sort         *string
	Search       *string
}

func (c *Client) ListIssues(ctx context.Context, p ListIssuesParams) (*IssueList, error) {
	q := newQuery("list_issues").
		optInt("project_id", p.ProjectID).
		optString("status_id", p.StatusID).
		optInt("priority_id", p.PriorityID).
		optInt("tracker_id", p.TrackerID).
		optInt("assigned_to_id", p.AssignedToID).
		optInt("limit", p.Limit).
		optInt("offset", p.Offset).
		optList("include", p.Include).
		optString("sort", p.Sort).
		search(p.Search)
	return cachedGet[IssueList](ctx, c, q, cache.TierIssue, "/issues.json")
}

func (c *Client) GetIssue(ctx context.Context, id int, include []string) (*Issue, error) {
	q := newQuery("get_issue").
		id("id", id).
		optList("include", include)
	env, err := cachedGet[issueEnvelope](ctx, c, q, cache.TierIssue, issuePath(id))
	if err != nil {
		return nil, err
	}
	return envelopeValue(env.Issue, "issue")
}

func (c *Client) CreateIssue(ctx context.Context, in IssueInput) (*Issue, error) {
	return create[Issue](ctx, c, "/issues.json", "issue", issueEnvelopeInput{Issue: in})
}

// UpdateIssue applies a partial update. Only the fields set in in are sent.
// The upstream answers with an empty body, so the result is the issue as
// re-read after the cache was cleared.
func (c *Client) UpdateIssue(ctx context.Context, id int, in IssueInput) (*Issue, error) {
	return updateAndRefetch(ctx, c, issuePath(id), "issue", issueEnvelopeInput{Issue: in},
		func(ctx context.Context) (*Issue, error) {
			return c.GetIssue(ctx, id, nil)
		})
}

func (c *Client) DeleteIssue(ctx context.Context, id int) error {
	return c.remove(ctx, issuePath(id))
}

type issueEnvelopeInput struct {
	Issue IssueInput `json:"issue"`
}

func issuePath(id int) string {
	return fmt.Sprintf("/issues/%d.json", id)
}
