package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnreachable marks a failure to talk to the Redis server: a refused or
// dropped connection, or an I/O timeout. Replies from the server are not
// wrapped with it.
var ErrUnreachable = errors.New("cache backend unreachable")

// Retry policy for transient backend failures.
var (
	retryAttempts  = 3
	retryBaseDelay = 100 * time.Millisecond
)

// transientError marks a backend failure that may succeed on a later attempt.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// transient marks err as worth retrying. A nil err stays nil.
func transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked as a transient backend failure.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// withRetry runs op until it succeeds, fails permanently, or the attempts
// run out. The delay doubles after every transient failure.
func withRetry(ctx context.Context, op func() error) error {
	delay := retryBaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(); err == nil || !IsTransient(err) || attempt == retryAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
}
