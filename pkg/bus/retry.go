package bus

import (
	"context"
	"fmt"
	"time"
)

// Defaults of RetryPolicy.
const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Millisecond
)

// RetryPolicy retries a whole transaction a bounded number of times with
// a fixed delay in between. The attempt counter lives only for one call
// of Do.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy is 3 attempts, 2ms apart.
var DefaultRetryPolicy = RetryPolicy{Attempts: DefaultAttempts, Delay: DefaultDelay}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

// Error implements error.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("bus: %d attempts failed: %v", e.Attempts, e.Last)
}

// Unwrap returns the error of the last attempt.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do calls fn until it succeeds or the attempts are exhausted. A
// malformed response must be reported by fn as an error so it counts as
// a failed attempt.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for n := 1; ; n++ {
		if err = fn(); err == nil {
			return nil
		}
		if n >= attempts {
			break
		}
		if p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return &ExhaustedError{Attempts: attempts, Last: err}
}
