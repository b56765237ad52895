// Package retry repeats failing calls with backoff and guards endpoints
// with a circuit breaker.
//
//	err := retry.Do(ctx, retry.Policy{MaxRetries: 3}, func(ctx context.Context, attempt int) error {
//		resp, err := call(ctx)
//		if err != nil {
//			return err
//		}
//		if resp.StatusCode == http.StatusBadRequest {
//			return retry.Permanent(errBadRequest)
//		}
//		return nil
//	})
//
// Errors wrapped with Permanent stop the loop immediately and are returned
// as is. When every attempt fails, the last error is wrapped together with
// ErrExhausted. The wait between attempts honours context cancellation.
package retry
