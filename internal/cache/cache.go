package cache

import (
	"context"

	"github.com/go-faster/jx"
)

// Cache stores raw upstream response bodies keyed by a derived request key.
// Implementations handle their own synchronization.
type Cache interface {
	// Get returns the body stored under key if present and not expired.
	Get(ctx context.Context, key string) (jx.Raw, bool, error)

	// Set stores value under key with the TTL configured for tier.
	Set(ctx context.Context, key string, tier Tier, value jx.Raw) error

	// InvalidateAll evicts every entry. There is no partial invalidation.
	InvalidateAll(ctx context.Context) error
}

// Tier selects the time-to-live applied to an entry.
type Tier int

const (
	TierDefault Tier = iota
	TierProject
	TierIssue
	TierUser
	TierTimeEntry
)

func (t Tier) String() string {
	switch t {
	case TierProject:
		return "project"
	case TierIssue:
		return "issue"
	case TierUser:
		return "user"
	case TierTimeEntry:
		return "time_entry"
	default:
		return "default"
	}
}
