package orchestrator

import (
	"context"
	"time"
)

// Jobs periodically runs the retry and refresh drivers so that faults
// and slow targets are eventually resolved without operator action.
type Jobs struct {
	orch     *Orchestrator
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewJobs creates the periodic driver loop
func NewJobs(orch *Orchestrator, interval time.Duration) *Jobs {
	return &Jobs{
		orch:     orch,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the job loop
func (j *Jobs) Start(ctx context.Context) {
	go j.run(ctx)
}

// Stop stops the job loop and waits for an in-flight cycle to finish
func (j *Jobs) Stop() {
	close(j.stopCh)
	<-j.doneCh
}

func (j *Jobs) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.cycle(ctx)
		case <-j.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// cycle performs one pass of each driver. Errors are logged and the
// loop continues; a failed cycle is retried at the next tick.
func (j *Jobs) cycle(ctx context.Context) {
	if n, err := j.orch.RetryFailed(ctx, ""); err != nil {
		j.orch.logger.Warn().Err(err).Msg("periodic retry pass failed")
	} else if n > 0 {
		j.orch.logger.Info().Int("deposits", n).Msg("periodic retry pass re-enqueued deposits")
	}

	if n, err := j.orch.RefreshSubmitted(ctx, ""); err != nil {
		j.orch.logger.Warn().Err(err).Msg("periodic refresh pass failed")
	} else if n > 0 {
		j.orch.logger.Info().Int("deposits", n).Msg("periodic refresh pass polled deposits")
	}
}
