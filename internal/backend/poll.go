package backend

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// maxConsecutiveReadErrors bounds how many failed reads in a row a wait
// tolerates before giving up.
const maxConsecutiveReadErrors = 3

// AwaitByPolling reads the job every interval until it is terminal. Transient
// read failures are tolerated up to a small budget; a missing job ends the
// wait immediately.
func AwaitByPolling(ctx context.Context, reader JobReader, id string, interval time.Duration) (Job, error) {
	if interval <= 0 {
		interval = time.Second
	}
	failures := 0
	for {
		job, err := reader.ReadJob(ctx, id)
		switch {
		case err == nil:
			failures = 0
			if job.Terminal() {
				return job, nil
			}
		case errors.Is(err, ErrJobNotFound), ctx.Err() != nil:
			return Job{}, err
		default:
			failures++
			if failures >= maxConsecutiveReadErrors {
				return Job{}, fmt.Errorf("await job %s: %w", id, err)
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Job{}, ctx.Err()
		case <-timer.C:
		}
	}
}
