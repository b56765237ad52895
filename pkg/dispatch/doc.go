// Package dispatch delivers assembled events.
//
// Every sink implements Dispatcher. HTTPDispatcher posts payloads to the
// event endpoint with retries and an optional circuit breaker. Batcher
// buffers events in memory and merges compatible payloads before handing
// them to the next dispatcher. S3Archiver stores raw payloads in a bucket
// and OpenSearchIndexer bulk-indexes one document per snapshot event.
// Multi fans an event out to several sinks.
//
//	sender, err := dispatch.NewHTTPFromConfig(httpCfg)
//	if err != nil {
//		return err
//	}
//	b := dispatch.NewBatcher(sender, batchCfg)
//	defer b.Close(ctx)
package dispatch
