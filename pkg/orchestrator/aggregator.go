package orchestrator

import (
	"context"

	"github.com/carrel-io/ferry/pkg/cse"
	"github.com/carrel-io/ferry/pkg/faults"
	"github.com/carrel-io/ferry/pkg/metrics"
	"github.com/carrel-io/ferry/pkg/types"
)

// Aggregate collapses per-deposit outcomes into the submission's
// aggregated status once every child is terminal: all accepted means
// accepted, any rejected among terminal children means rejected. The
// operation is idempotent; unchanged children produce no write.
func (o *Orchestrator) Aggregate(ctx context.Context, submissionID string) {
	logger := o.logger.With().Str("submission", submissionID).Logger()

	result := o.engine.PerformCritical(ctx, submissionID, types.EntityTypeSubmission,
		func(e types.Entity) bool {
			return !e.(*types.Submission).Terminal()
		},
		func(e types.Entity) (any, error) {
			s := e.(*types.Submission)

			deposits := o.childDeposits(ctx, submissionID)
			if len(deposits) == 0 {
				return nil, cse.SkipWrite
			}

			accepted := 0
			for _, d := range deposits {
				if !d.Terminal() {
					return nil, cse.SkipWrite
				}
				if d.Status == types.DepositStatusAccepted {
					accepted++
				}
			}

			next := types.AggregatedStatusRejected
			if accepted == len(deposits) {
				next = types.AggregatedStatusAccepted
			}
			if s.AggregatedStatus == next {
				return nil, cse.SkipWrite
			}
			s.AggregatedStatus = next
			return next, nil
		},
		nil)

	switch {
	case result.PolicyMiss():
		logger.Debug().Msg("submission already terminal, nothing to aggregate")
	case !result.Success:
		o.sink.HandleError(ctx, faults.ForSubmission(submissionID, result.Cause))
	case result.Value != nil:
		status := result.Value.(types.AggregatedStatus)
		metrics.SubmissionsAggregated.WithLabelValues(string(status)).Inc()
		logger.Info().Str("status", string(status)).Msg("submission reached terminal status")
	}
}

// childDeposits reads the deposits linked to a submission. Children
// that cannot be deserialized are skipped: a corrupt entity must not
// block aggregation of the rest.
func (o *Orchestrator) childDeposits(ctx context.Context, submissionID string) []*types.Deposit {
	incoming, err := o.client.Incoming(ctx, submissionID)
	if err != nil {
		o.logger.Warn().Err(err).Str("submission", submissionID).Msg("could not resolve child deposits")
		return nil
	}

	var deposits []*types.Deposit
	for _, id := range incoming["submission"] {
		entity, err := o.client.Read(ctx, id, types.EntityTypeDeposit)
		if err != nil {
			o.logger.Warn().Err(err).Str("deposit", id).Msg("skipping unreadable child")
			continue
		}
		d, ok := entity.(*types.Deposit)
		if !ok || d.Repository == "" {
			// The incoming relation also carries Files; ignore them.
			continue
		}
		deposits = append(deposits, d)
	}
	return deposits
}
