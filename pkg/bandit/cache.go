package bandit

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/dmitrymomot/flagkit/pkg/cache"
)

type cacheEntry struct {
	attributesHash uint32
	variationID    string
}

// Cache memoizes predictions per user and rule. An entry is reused only
// while the user's bandit attributes hash to the same value. Safe for
// concurrent use.
type Cache struct {
	next Fetcher
	lru  *cache.LRU[uint32, cacheEntry]
}

// NewCache wraps next with an LRU of the given capacity. A positive ttl
// expires entries.
func NewCache(next Fetcher, capacity int, ttl time.Duration, opts ...cache.Option) *Cache {
	if ttl > 0 {
		opts = append(opts, cache.WithTTL(ttl))
	}
	return &Cache{
		next: next,
		lru:  cache.NewLRU[uint32, cacheEntry](capacity, opts...),
	}
}

// Fetch honours the cache flags of req: ResetCache drops every entry,
// InvalidateUser drops the entry of the user and rule, IgnoreCache skips
// both lookup and store.
func (c *Cache) Fetch(ctx context.Context, req Request) (string, error) {
	if req.ResetCache {
		c.lru.Clear()
	}
	key := cacheKey(req.UserID, req.RuleID)
	if req.InvalidateUser {
		c.lru.Remove(key)
	}

	attrsHash := attributesHash(req.Attributes)
	if !req.IgnoreCache {
		if e, ok := c.lru.Get(key); ok {
			if e.attributesHash == attrsHash {
				return e.variationID, nil
			}
			c.lru.Remove(key)
		}
	}

	id, err := c.next.Fetch(ctx, req)
	if err != nil {
		return "", err
	}
	if !req.IgnoreCache {
		c.lru.Put(key, cacheEntry{attributesHash: attrsHash, variationID: id})
	}
	return id, nil
}

// Len returns the number of cached predictions.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func cacheKey(userID, ruleID string) uint32 {
	return murmur3.Sum32([]byte(strconv.Itoa(len(userID)) + "-" + userID + ruleID))
}

// attributesHash is independent of attribute order.
func attributesHash(attrs []Attribute) uint32 {
	sorted := slices.Clone(attrs)
	slices.SortFunc(sorted, func(a, b Attribute) int {
		return strings.Compare(a.ID, b.ID)
	})
	data, err := json.Marshal(sorted)
	if err != nil {
		return 0
	}
	return murmur3.Sum32(data)
}
