package link

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy decides how long to wait before the next connection attempt.
type RetryPolicy interface {
	// Delay returns the wait before attempt n (1 for the first retry).
	Delay(attempt int) time.Duration
}

// ConstantRetry waits the same interval before every attempt.
type ConstantRetry struct {
	Interval time.Duration
}

// Delay implements RetryPolicy.
func (r ConstantRetry) Delay(int) time.Duration {
	return r.Interval
}

// BackoffRetry grows the wait geometrically up to a ceiling.
type BackoffRetry struct {
	// Initial is the wait before the first retry.
	Initial time.Duration

	// Factor multiplies the wait after every attempt. Must be >= 1.
	Factor float64

	// Max caps the wait. Zero caps it at the largest Duration.
	Max time.Duration

	// Jitter adds up to this fraction of the wait at random, in [0, 1].
	Jitter float64
}

// Validate checks the settings.
func (r BackoffRetry) Validate() error {
	if r.Initial <= 0 {
		return fmt.Errorf("%w: initial delay should be > 0", ErrInvalidRetry)
	}
	if r.Factor < 1 {
		return fmt.Errorf("%w: backoff factor should be >= 1", ErrInvalidRetry)
	}
	if r.Max < 0 {
		return fmt.Errorf("%w: max delay should be >= 0", ErrInvalidRetry)
	}
	if r.Jitter < 0 || r.Jitter > 1 {
		return fmt.Errorf("%w: jitter should be within [0, 1]", ErrInvalidRetry)
	}
	return nil
}

// Delay implements RetryPolicy.
func (r BackoffRetry) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	ceiling := time.Duration(math.MaxInt64)
	if r.Max > 0 {
		ceiling = r.Max
	}
	limit := float64(ceiling)

	d := float64(r.Initial)
	for i := 1; i < attempt && d < limit; i++ {
		d *= r.Factor
	}
	if r.Jitter > 0 && d < limit {
		d += d * r.Jitter * rand.Float64()
	}
	if d >= limit {
		return ceiling
	}
	return time.Duration(d)
}
