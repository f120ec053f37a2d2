package cache

import (
	"context"
	"time"
)

// Result describes how CacheAside satisfied a lookup.
type Result string

const (
	Hit   Result = "hit"
	Miss  Result = "miss"
	Error Result = "error"
)

// CacheAside tries Redis first, on miss it calls fetch (which must populate
// dest), then stores the result with ttl. Redis failures degrade to fetch and
// are reported as Error; only fetch failures are returned.
func (c *Cache) CacheAside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) (Result, error) {
	result := Miss

	found, err := c.GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		result = Error
	case found:
		return Hit, nil
	}

	if err := fetch(); err != nil {
		return result, err
	}

	if err := c.SetJSON(ctx, key, dest, ttl); err != nil {
		result = Error
	}
	return result, nil
}
