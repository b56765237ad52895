// Package cache provides a generic, thread-safe LRU cache with optional
// entry expiry.
//
// The cache backs the in-memory user profile store and the bandit
// prediction cache:
//
//	c := cache.NewLRU[string, string](10000, cache.WithTTL(30*time.Minute))
//	c.Put("user:rule", "variation-id")
//	if v, ok := c.Get("user:rule"); ok {
//		// use v
//	}
//
// Expiry is measured from the last Put. Expired entries are not returned
// and are dropped the next time they are touched; they still count towards
// capacity until then, so the least recently used entry is evicted first
// regardless of expiry.
//
// All operations are O(1) and safe for concurrent use.
package cache
