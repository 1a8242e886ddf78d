// Package httputil provides HTTP helpers shared by the persistence client.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff, but only for
// errors the caller marked as transient with [RetryableError]:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Transient(err)
//	    }
//	    ...
//	})
//
// [FromResponse] additionally honors a Retry-After header on 429 and 5xx
// responses.
//
// Saving a diagram is never retried automatically; only idempotent reads
// go through this package.
//
// # Defaults
//
//   - Max attempts: 3
//   - Base backoff: 500ms, doubling after each attempt
//   - Longest wait: [MaxDelay]
package httputil
