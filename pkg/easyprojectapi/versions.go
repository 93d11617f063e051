package easyprojectapi

import (
	"context"
	"fmt"

	"easyproject-mcp/server/internal/cache"
)

// ListVersionsParams filters milestones. With ProjectID set the project's
// own listing is used instead of the global one.
type ListVersionsParams struct {
	ProjectID *int
	Status    *string
	Limit     *int
	Offset    *int
	Search    *string
}

func (c *Client) ListVersions(ctx context.Context, p ListVersionsParams) (*VersionList, error) {
	path := "/versions.json"
	if p.ProjectID != nil {
		path = projectVersionsPath(*p.ProjectID)
	}
	q := newQuery("list_versions").
		optInt("project_id", p.ProjectID).
		optString("status", p.Status).
		optInt("limit", p.Limit).
		optInt("offset", p.Offset).
		search(p.Search)
	if p.ProjectID != nil {
		// Carried by the path.
		q.values.Del("project_id")
	}
	return cachedGet[VersionList](ctx, c, q, cache.TierProject, path)
}

func (c *Client) GetVersion(ctx context.Context, id int) (*Version, error) {
	q := newQuery("get_version").id("id", id)
	env, err := cachedGet[versionEnvelope](ctx, c, q, cache.TierProject, versionPath(id))
	if err != nil {
		return nil, err
	}
	return envelopeValue(env.Version, "version")
}

func (c *Client) CreateVersion(ctx context.Context, projectID int, in VersionInput) (*Version, error) {
	return create[Version](ctx, c, projectVersionsPath(projectID), "version", versionEnvelopeInput{Version: in})
}

func (c *Client) UpdateVersion(ctx context.Context, id int, in VersionInput) (*Version, error) {
	return updateAndRefetch(ctx, c, versionPath(id), "version", versionEnvelopeInput{Version: in},
		func(ctx context.Context) (*Version, error) {
			return c.GetVersion(ctx, id)
		})
}

func (c *Client) DeleteVersion(ctx context.Context, id int) error {
	return c.remove(ctx, versionPath(id))
}

type versionEnvelopeInput struct {
	Version VersionInput `json:"version"`
}

func versionPath(id int) string {
	return fmt.Sprintf("/versions/%d.json", id)
}

func projectVersionsPath(projectID int) string {
	return fmt.Sprintf("/projects/%d/versions.json", projectID)
}
