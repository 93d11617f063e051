package easyprojectapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"easyproject-mcp/server/internal/cache"
)

// cachedGet serves a read from the cache when possible. On a miss it fetches
// path with q's parameters and stores the raw body under q's key once it has
// decoded cleanly.
func cachedGet[T any](ctx context.Context, c *Client, q *query, tier cache.Tier, path string) (*T, error) {
	key := q.cacheKey()

	if c.cache != nil {
		raw, found, err := c.cache.Get(ctx, key)
		if err != nil {
			return nil, &CacheError{Key: key, Err: err}
		}
		if found {
			out := new(T)
			if err := json.Unmarshal(raw, out); err != nil {
				return nil, &CacheError{Key: key, Err: errors.Wrap(err, "decode cached value")}
			}
			c.log.Debug().Str("key", key).Msg("cache hit")
			return out, nil
		}
	}

	raw, err := c.do(ctx, http.MethodGet, path, q.values, nil)
	if err != nil {
		return nil, err
	}

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, &DecodeError{Body: string(raw), Err: err}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, tier, raw); err != nil {
			return nil, &CacheError{Key: key, Err: err}
		}
	}
	return out, nil
}

// mutate sends a write and clears the cache once it succeeded. A failed
// write leaves the cache alone.
func (c *Client) mutate(ctx context.Context, method, path string, body any) (jx.Raw, error) {
	raw, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}
	if err := c.invalidate(ctx); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) invalidate(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.InvalidateAll(ctx); err != nil {
		return &CacheError{Key: "*", Err: err}
	}
	return nil
}

// InvalidateCache drops every cached response.
func (c *Client) InvalidateCache(ctx context.Context) error {
	return c.invalidate(ctx)
}

// create posts body and decodes the wrapped entity from the response. The
// upstream always echoes a created entity, so a missing wrapper is an error.
func create[E any](ctx context.Context, c *Client, path, wrapper string, body any) (*E, error) {
	raw, err := c.mutate(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	entity, err := unwrap[E](raw, wrapper)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, &DecodeError{Body: string(raw), Err: errors.Errorf("response has no %q object", wrapper)}
	}
	return entity, nil
}

// updateAndRefetch sends a PUT. Redmine answers updates with an empty body
// (normalized to {}), in which case the entity is read back with refetch,
// which runs against the freshly cleared cache.
func updateAndRefetch[E any](
	ctx context.Context,
	c *Client,
	path, wrapper string,
	body any,
	refetch func(context.Context) (*E, error),
) (*E, error) {
	raw, err := c.mutate(ctx, http.MethodPut, path, body)
	if err != nil {
		return nil, err
	}
	entity, err := unwrap[E](raw, wrapper)
	if err != nil {
		return nil, err
	}
	if entity != nil {
		return entity, nil
	}
	return refetch(ctx)
}

// remove sends a DELETE. The response body carries nothing of interest.
func (c *Client) remove(ctx context.Context, path string) error {
	_, err := c.mutate(ctx, http.MethodDelete, path, nil)
	return err
}

// unwrap decodes the object under wrapper. It returns nil, nil when raw has
// no such key.
func unwrap[E any](raw jx.Raw, wrapper string) (*E, error) {
	found, err := hasKey(raw, wrapper)
	if err != nil {
		return nil, &DecodeError{Body: string(raw), Err: err}
	}
	if !found {
		return nil, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &DecodeError{Body: string(raw), Err: err}
	}
	inner := envelope[wrapper]
	if string(inner) == "null" {
		return nil, nil
	}
	out := new(E)
	if err := json.Unmarshal(inner, out); err != nil {
		return nil, &DecodeError{Body: string(raw), Err: err}
	}
	return out, nil
}

// hasKey reports whether the top-level object in raw has the given key.
func hasKey(raw jx.Raw, key string) (bool, error) {
	d := jx.DecodeBytes(raw)
	if d.Next() != jx.Object {
		return false, nil
	}
	found := false
	err := d.ObjBytes(func(d *jx.Decoder, k []byte) error {
		if string(k) == key {
			found = true
		}
		return d.Skip()
	})
	if err != nil {
		return false, errors.Wrap(err, "scan response object")
	}
	return found, nil
}

// envelopeValue rejects a read whose response lacked the wrapper object.
func envelopeValue[E any](v *E, wrapper string) (*E, error) {
	if v == nil {
		return nil, &DecodeError{Err: errors.Errorf("response has no %q object", wrapper)}
	}
	return v, nil
}
