package easyprojectapi

import (
	"context"
	"fmt"

	"easyproject-mcp/server/internal/cache"
)

type ListUsersParams struct {
	Limit  *int
	Offset *int
	Status *int
	Search *string
	Sort   *string
}

func (c *Client) ListUsers(ctx context.Context, p ListUsersParams) (*UserList, error) {
	q := newQuery("list_users").
		optInt("limit", p.Limit).
		optInt("offset", p.Offset).
		optInt("status", p.Status).
		search(p.Search).
		optString("sort", p.Sort)
	return cachedGet[UserList](ctx, c, q, cache.TierUser, "/users.json")
}

func (c *Client) GetUser(ctx context.Context, id int, include []string) (*User, error) {
	q := newQuery("get_user").
		id("id", id).
		optList("include", include)
	env, err := cachedGet[userEnvelope](ctx, c, q, cache.TierUser, fmt.Sprintf("/users/%d.json", id))
	if err != nil {
		return nil, err
	}
	return envelopeValue(env.User, "user")
}

// GetCurrentUser returns the account that owns the API key.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	q := newQuery("get_current_user")
	env, err := cachedGet[userEnvelope](ctx, c, q, cache.TierUser, "/users/current.json")
	if err != nil {
		return nil, err
	}
	return envelopeValue(env.User, "user")
}
