package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrDownloadTimeout = errors.New("file download timed out")

// DownloadAttemptTimeout bounds a single file download attempt.
const DownloadAttemptTimeout = 30 * time.Second

// RetryPolicy retries an operation that failed with ErrDownloadTimeout.
// The wait before retry n is min(Initial*2^(n-1), Max).
type RetryPolicy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	Sleep    func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Initial: 4 * time.Second, Max: 10 * time.Second, Sleep: sleep}
}

func (p RetryPolicy) Delay(n int) time.Duration {
	d := p.Initial
	for i := 1; i < n; i++ {
		d *= 2
		if d >= p.Max {
			return p.Max
		}
	}
	return min(d, p.Max)
}

// Budget is the longest Do can take when every attempt runs for perAttempt.
func (p RetryPolicy) Budget(perAttempt time.Duration) time.Duration {
	attempts := max(p.Attempts, 1)
	total := time.Duration(attempts) * perAttempt
	for n := 1; n < attempts; n++ {
		total += p.Delay(n)
	}
	return total
}

func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	wait := p.Sleep
	if wait == nil {
		wait = sleep
	}

	var err error
	for n := 1; n <= attempts; n++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !errors.Is(err, ErrDownloadTimeout) || n == attempts {
			break
		}
		if serr := wait(ctx, p.Delay(n)); serr != nil {
			return serr
		}
	}
	if errors.Is(err, ErrDownloadTimeout) {
		return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
