// Package retry provides bounded retry with exponential backoff and
// optional jitter. Inside chief it backs the telemetry emitter's batch
// send path, where a batch gets a short, fixed-delay second chance before
// it is handed to the on-disk spool.
//
// Basic usage:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
//	    return sendBatch(ctx)
//	})
//
// Callers with their own notion of what is worth retrying supply it
// explicitly:
//
//	err := retry.DoWithRetryable(ctx, cfg, fn, func(err error) bool {
//	    return err != nil
//	})
//
// For HTTP requests, internal/platform/httpclient layers status-code
// awareness on top of its own retry loop; the two are not combined on the
// same call path.
package retry
