package httputil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// MaxDelay caps the wait between two attempts, including waits requested by
// a Retry-After header.
const MaxDelay = 10 * time.Second

// RetryableError marks a failure as transient. After, when positive,
// replaces the computed backoff for the next attempt.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Transient wraps err as a [RetryableError]. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// FromResponse wraps err as a [RetryableError] carrying the response's
// Retry-After hint, if any. Only the delay-seconds form is honored.
func FromResponse(resp *http.Response, err error) error {
	re := &RetryableError{Err: err}
	if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
		re.After = time.Duration(secs) * time.Second
	}
	return re
}

// Retry runs fn at most attempts times. Errors that are not a
// [RetryableError] end the loop at once. Between attempts it waits delay,
// doubling each time up to [MaxDelay]. A cancelled ctx returns ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		var re *RetryableError
		if err == nil || !errors.As(err, &re) {
			return err
		}
		if i == attempts-1 {
			break
		}

		wait := delay
		if re.After > 0 {
			wait = re.After
		}
		timer := time.NewTimer(min(wait, MaxDelay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, MaxDelay)
	}
	return err
}

// RetryWithBackoff calls [Retry] with 3 attempts starting at 500ms.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, 500*time.Millisecond, fn)
}
