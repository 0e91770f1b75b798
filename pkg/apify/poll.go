package apify

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Poll intervals are vars so tests can shorten them.
var (
	pollInitialInterval = 2 * time.Second
	pollMaxInterval     = 30 * time.Second
)

const pollBackoffFactor = 1.5

// WaitForRun polls a run until it reaches a terminal status or the timeout
// elapses. Poll interval grows from 2s toward 30s.
func WaitForRun(ctx context.Context, c Client, runID string, timeout time.Duration) (*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interval := pollInitialInterval
	for {
		run, err := c.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		if run.Finished() {
			if run.Status != RunStatusSucceeded {
				return run, eris.New(fmt.Sprintf("apify: run %s finished with status %s", runID, run.Status))
			}
			return run, nil
		}

		zap.L().Debug("apify run still in progress",
			zap.String("run_id", runID),
			zap.String("status", run.Status),
			zap.Duration("next_poll", interval))

		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), fmt.Sprintf("apify: run %s did not finish within %s", runID, timeout))
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * pollBackoffFactor)
		if interval > pollMaxInterval {
			interval = pollMaxInterval
		}
	}
}
