// Package client is the entry point for applications.
//
// A Client serves one configuration revision at a time and swaps it
// atomically on UpdateConfig. Experiment calls (Activate, GetVariation,
// Track) and flag calls (Decide, DecideAll, IsFeatureEnabled,
// GetFeatureVariable) never return errors: lookup misses and degraded
// decisions go to the ErrorHandler and the call returns an empty value.
//
// When a profile store is configured the client saves every fresh or
// bandit decision so that later calls stay sticky. Impressions and
// conversions are assembled by package event and handed to a dispatcher.
// Decisions, events and bandit fetches are counted in Prometheus.
//
//	c, err := client.NewFromDatafile(data,
//		client.WithProfileStore(profile.NewMemory(10000)),
//		client.WithDispatcher(batcher),
//		client.WithCloser(batcher.Close),
//	)
//	if err != nil {
//		return err
//	}
//	defer c.Close(ctx)
//
//	if c.IsFeatureEnabled(ctx, "new_search", userID, attrs) {
//		// ...
//	}
package client
