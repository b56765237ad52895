// Package bandit fetches contextual predictions for bandit-enabled rules.
//
// Client posts the user's declared attributes to a prediction service and
// returns the predicted variation id. Failed attempts are retried with
// exponential backoff, and each fetch is traced with OpenTelemetry. Cache
// wraps any Fetcher with an LRU keyed by user and rule that is invalidated
// whenever the user's attributes change.
//
// Fetch failures are never fatal to a decision: the caller keeps the
// variation produced by bucketing.
//
//	c, err := bandit.NewClient(cfg.Endpoint, cfg.Options()...)
//	if err != nil {
//		return err
//	}
//	fetcher := bandit.NewCache(c, cfg.CacheSize, cfg.CacheTTL)
package bandit
