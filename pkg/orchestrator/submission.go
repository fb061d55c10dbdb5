package orchestrator

import (
	"context"
	"fmt"

	"github.com/carrel-io/ferry/pkg/faults"
	"github.com/carrel-io/ferry/pkg/log"
	"github.com/carrel-io/ferry/pkg/packager"
	"github.com/carrel-io/ferry/pkg/policy"
	"github.com/carrel-io/ferry/pkg/types"
	"github.com/carrel-io/ferry/pkg/worker"
)

// ProcessSubmission claims an admissible submission and fans out one
// deposit per target. The claim (NOT_STARTED or FAILED → IN_PROGRESS)
// is a critical section, so concurrent events about the same
// submission advance it at most once.
func (o *Orchestrator) ProcessSubmission(ctx context.Context, id string) {
	logger := log.WithSubmissionID(id)

	result := o.engine.PerformCritical(ctx, id, types.EntityTypeSubmission,
		func(e types.Entity) bool {
			return policy.AcceptSubmission(e.(*types.Submission))
		},
		func(e types.Entity) (any, error) {
			s := e.(*types.Submission)
			ds, err := o.builder.Build(ctx, s)
			if err != nil {
				return nil, err
			}
			s.AggregatedStatus = types.AggregatedStatusInProgress
			return ds, nil
		},
		func(e types.Entity, v any) bool {
			s := e.(*types.Submission)
			ds, ok := v.(*types.DepositSubmission)
			return s.AggregatedStatus == types.AggregatedStatusInProgress &&
				ok && len(ds.Files) >= 1
		})

	switch {
	case result.PolicyMiss():
		logger.Debug().Msg("submission not admissible, dropping")
		return
	case !result.Success:
		o.sink.HandleError(ctx, faults.ForSubmission(id, result.Cause))
		return
	}

	submission := result.Entity.(*types.Submission)
	ds := result.Value.(*types.DepositSubmission)
	logger.Info().Int("files", len(ds.Files)).Int("targets", len(submission.Repositories)).
		Msg("submission claimed")

	o.fanOut(ctx, submission, ds)
}

// fanOut creates one deposit per target and dispatches its task.
// Creation is sequential within the submission; task ordering across
// targets is not guaranteed.
func (o *Orchestrator) fanOut(ctx context.Context, s *types.Submission, ds *types.DepositSubmission) {
	existing := o.existingDeposits(ctx, s.ID)

	for _, target := range s.Repositories {
		logger := log.WithRepository(target).With().Str("submission", s.ID).Logger()

		if depositID, ok := existing[target]; ok {
			logger.Debug().Str("deposit", depositID).Msg("target already has a deposit, skipping")
			continue
		}
		if o.journal != nil {
			if rec, err := o.journal.Dispatched(s.ID, target); err == nil && rec != nil {
				logger.Debug().Str("deposit", rec.Deposit).Msg("dispatch journaled by an earlier run, skipping")
				continue
			}
		}

		created, err := o.client.Create(ctx, &types.Deposit{
			Submission: s.ID,
			Repository: target,
		})
		if err != nil {
			// No deposit to mark; the submission itself carries the
			// failure.
			o.sink.HandleError(ctx, faults.ForSubmission(s.ID,
				fmt.Errorf("creating deposit for %s: %w", target, err)))
			continue
		}
		depositID := created.EntityID()

		if o.journal != nil {
			if err := o.journal.MarkDispatched(s.ID, target, depositID); err != nil {
				logger.Warn().Err(err).Msg("failed to journal dispatch")
			}
		}

		pkgr := o.lookupPackager(ctx, target)
		if pkgr == nil {
			// A missing packager is a configuration error, not a
			// transient failure: fail the deposit and move on.
			o.sink.HandleError(ctx, &faults.EntityError{
				EntityID:   depositID,
				EntityType: types.EntityTypeDeposit,
				Config:     true,
				Err:        fmt.Errorf("no packager configured for %s", target),
			})
			continue
		}

		task := worker.NewTask(o.taskDeps(), depositID, ds, pkgr)
		if err := o.pool.Submit(task); err != nil {
			o.sink.HandleError(ctx, faults.ForDeposit(depositID,
				fmt.Errorf("dispatching task: %w", err)))
			continue
		}
		logger.Info().Str("deposit", depositID).Msg("deposit task dispatched")
	}
}

// existingDeposits maps target repository → deposit identifier for the
// deposits already linked to the submission. At most one deposit may
// exist per (submission, repository) pair.
func (o *Orchestrator) existingDeposits(ctx context.Context, submissionID string) map[string]string {
	out := make(map[string]string)
	incoming, err := o.client.Incoming(ctx, submissionID)
	if err != nil {
		o.logger.Warn().Err(err).Str("submission", submissionID).
			Msg("could not resolve existing deposits")
		return out
	}
	for _, id := range incoming["submission"] {
		entity, err := o.client.Read(ctx, id, types.EntityTypeDeposit)
		if err != nil {
			continue
		}
		d, ok := entity.(*types.Deposit)
		if !ok || d.Repository == "" {
			continue
		}
		out[d.Repository] = d.ID
	}
	return out
}

// lookupPackager resolves the packager for a target repository,
// reading the repository entity so its key can be tried before its
// identifier
func (o *Orchestrator) lookupPackager(ctx context.Context, target string) *packager.Packager {
	entity, err := o.client.Read(ctx, target, types.EntityTypeRepository)
	if err != nil {
		// Fall back to the URI forms alone.
		return o.registry.Lookup(target)
	}
	return o.registry.LookupRepository(entity.(*types.Repository))
}
