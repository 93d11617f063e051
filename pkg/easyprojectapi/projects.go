package easyprojectapi

import (
	"context"
	"fmt"

	"easyproject-mcp/server/internal/cache"
)

type ListProjectsParams struct {
	Limit           *int
	Offset          *int
	IncludeArchived *bool
	Search          *string
	Sort            *string
}

func (c *Client) ListProjects(ctx context.Context, p ListProjectsParams) (*ProjectList, error) {
	q := newQuery("list_projects").
		optInt("limit", p.Limit).
		optInt("offset", p.Offset).
		optBool("include_archived", p.IncludeArchived).
		search(p.Search).
		optString("sort", p.Sort)
	return cachedGet[ProjectList](ctx, c, q, cache.TierProject, "/projects.json")
}

// GetProject fetches one project. include names extra associations such as
// trackers or enabled_modules.
func (c *Client) GetProject(ctx context.Context, id int, include []string) (*Project, error) {
	q := newQuery("get_project").
		id("id", id).
		optList("include", include)
	env, err := cachedGet[projectEnvelope](ctx, c, q, cache.TierProject, projectPath(id))
	if err != nil {
		return nil, err
	}
	return envelopeValue(env.Project, "project")
}

func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (*Project, error) {
	return create[Project](ctx, c, "/projects.json", "project", projectEnvelopeInput{Project: in})
}

func (c *Client) UpdateProject(ctx context.Context, id int, in ProjectInput) (*Project, error) {
	return updateAndRefetch(ctx, c, projectPath(id), "project", projectEnvelopeInput{Project: in},
		func(ctx context.Context) (*Project, error) {
			return c.GetProject(ctx, id, nil)
		})
}

func (c *Client) DeleteProject(ctx context.Context, id int) error {
	return c.remove(ctx, projectPath(id))
}

type projectEnvelopeInput struct {
	Project ProjectInput `json:"project"`
}

func projectPath(id int) string {
	return fmt.Sprintf("/projects/%d.json", id)
}
