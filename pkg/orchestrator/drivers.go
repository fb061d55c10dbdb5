package orchestrator

import (
	"context"
	"fmt"

	"github.com/carrel-io/ferry/pkg/faults"
	"github.com/carrel-io/ferry/pkg/policy"
	"github.com/carrel-io/ferry/pkg/types"
	"github.com/carrel-io/ferry/pkg/worker"
)

// RetryFailed re-enqueues failed (and never-started) deposits. With a
// URI it targets one deposit; without, every failed and dirty deposit
// found upstream. Returns the number of tasks dispatched.
func (o *Orchestrator) RetryFailed(ctx context.Context, uri string) (int, error) {
	ids, err := o.collect(ctx, uri,
		string(types.DepositStatusFailed), string(types.DepositStatusDirty))
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, id := range ids {
		if o.retryOne(ctx, id) {
			dispatched++
		}
	}
	return dispatched, nil
}

func (o *Orchestrator) retryOne(ctx context.Context, id string) bool {
	logger := o.logger.With().Str("deposit", id).Logger()

	entity, err := o.client.Read(ctx, id, types.EntityTypeDeposit)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read deposit for retry")
		return false
	}
	d := entity.(*types.Deposit)
	if !policy.RetryableDeposit(d) {
		logger.Debug().Str("status", string(d.Status)).Msg("deposit not retryable, skipping")
		return false
	}

	sentity, err := o.client.Read(ctx, d.Submission, types.EntityTypeSubmission)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read parent submission")
		return false
	}
	ds, err := o.builder.Build(ctx, sentity.(*types.Submission))
	if err != nil {
		o.sink.HandleError(ctx, faults.ForDeposit(id, fmt.Errorf("rebuilding submission: %w", err)))
		return false
	}

	pkgr := o.lookupPackager(ctx, d.Repository)
	if pkgr == nil {
		o.sink.HandleError(ctx, &faults.EntityError{
			EntityID:   id,
			EntityType: types.EntityTypeDeposit,
			Config:     true,
			Err:        fmt.Errorf("no packager configured for %s", d.Repository),
		})
		return false
	}

	if o.journal != nil {
		// Let the re-dispatch be journaled anew.
		if err := o.journal.Forget(d.Submission, d.Repository); err != nil {
			logger.Warn().Err(err).Msg("could not clear dispatch journal entry")
		}
	}

	task := worker.NewTask(o.taskDeps(), id, ds, pkgr)
	task.Admit = policy.RetryableDeposit
	if err := o.pool.Submit(task); err != nil {
		o.sink.HandleError(ctx, faults.ForDeposit(id, fmt.Errorf("dispatching retry: %w", err)))
		return false
	}
	logger.Info().Msg("deposit re-enqueued")
	return true
}

// RefreshSubmitted re-polls the status references of submitted
// deposits. With a URI it targets one deposit; without, every
// submitted deposit found upstream. Returns the number refreshed.
func (o *Orchestrator) RefreshSubmitted(ctx context.Context, uri string) (int, error) {
	ids, err := o.collect(ctx, uri, string(types.DepositStatusSubmitted))
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		o.Refresh(ctx, id)
	}
	return len(ids), nil
}

// collect resolves the deposit identifiers a driver operates on:
// either the one given, or an upstream attribute search per status
func (o *Orchestrator) collect(ctx context.Context, uri string, statuses ...string) ([]string, error) {
	if uri != "" {
		return []string{uri}, nil
	}
	seen := make(map[string]bool)
	var ids []string
	for _, status := range statuses {
		found, err := o.client.FindByAttribute(ctx, types.EntityTypeDeposit, "depositStatus", status)
		if err != nil {
			return nil, fmt.Errorf("searching deposits with status %q: %w", status, err)
		}
		for _, id := range found {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}
