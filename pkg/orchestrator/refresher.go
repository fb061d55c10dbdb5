package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/carrel-io/ferry/pkg/cse"
	"github.com/carrel-io/ferry/pkg/metrics"
	"github.com/carrel-io/ferry/pkg/packager"
	"github.com/carrel-io/ferry/pkg/policy"
	"github.com/carrel-io/ferry/pkg/types"
)

// ErrUnknownStatusTerm reports a status document whose term maps to no
// deposit status. The deposit is left submitted; the refresh fails,
// the deposit does not.
var ErrUnknownStatusTerm = errors.New("orchestrator: status document term is not mapped")

// Refresh resolves the asynchronous target-side outcome of a deposit
// whose transfer succeeded. The deposit and its repository copy move
// together: accepted/complete, rejected/rejected, or neither.
func (o *Orchestrator) Refresh(ctx context.Context, depositID string) {
	logger := o.logger.With().Str("deposit", depositID).Logger()

	var pkgr *packager.Packager

	result := o.engine.PerformCritical(ctx, depositID, types.EntityTypeDeposit,
		func(e types.Entity) bool {
			d := e.(*types.Deposit)
			if !policy.RefreshableDeposit(d) {
				return false
			}
			if pkgr = o.lookupPackager(ctx, d.Repository); pkgr == nil {
				return false
			}
			if d.RepositoryCopy == "" {
				return false
			}
			_, err := o.client.Read(ctx, d.RepositoryCopy, types.EntityTypeRepositoryCopy)
			return err == nil
		},
		func(e types.Entity) (any, error) {
			d := e.(*types.Deposit)

			status, err := pkgr.Status.Process(ctx, d, pkgr.Config)
			if err != nil {
				return nil, fmt.Errorf("interpreting status document: %w", err)
			}

			switch status {
			case types.DepositStatusAccepted:
				rc, err := o.updateCopy(ctx, d.RepositoryCopy, types.CopyStatusComplete)
				if err != nil {
					return nil, err
				}
				d.Status = types.DepositStatusAccepted
				return rc, nil
			case types.DepositStatusRejected:
				rc, err := o.updateCopy(ctx, d.RepositoryCopy, types.CopyStatusRejected)
				if err != nil {
					return nil, err
				}
				d.Status = types.DepositStatusRejected
				return rc, nil
			case types.DepositStatusSubmitted:
				// Still in flight downstream; poll again later.
				return nil, cse.SkipWrite
			default:
				return nil, ErrUnknownStatusTerm
			}
		},
		func(e types.Entity, v any) bool {
			d := e.(*types.Deposit)
			rc, _ := v.(*types.RepositoryCopy)
			switch d.Status {
			case types.DepositStatusAccepted:
				return rc != nil && rc.CopyStatus == types.CopyStatusComplete
			case types.DepositStatusRejected:
				return rc != nil && rc.CopyStatus == types.CopyStatusRejected
			default:
				return true
			}
		})

	switch {
	case result.PolicyMiss():
		metrics.StatusRefreshesTotal.WithLabelValues("policy_miss").Inc()
		logger.Debug().Msg("deposit not refreshable, dropping")
	case !result.Success:
		// A refresh failure is not a deposit failure: the deposit
		// keeps its state and a later poll may succeed.
		metrics.StatusRefreshesTotal.WithLabelValues("error").Inc()
		logger.Warn().Err(result.Cause).Msg("status refresh failed")
	case result.Value == nil:
		metrics.StatusRefreshesTotal.WithLabelValues("pending").Inc()
		logger.Debug().Msg("target still processing, deposit stays submitted")
	default:
		d := result.Entity.(*types.Deposit)
		metrics.StatusRefreshesTotal.WithLabelValues("resolved").Inc()
		metrics.DepositsTotal.WithLabelValues(string(d.Status)).Inc()
		logger.Info().Str("status", string(d.Status)).Msg("deposit outcome resolved")
		o.Aggregate(ctx, d.Submission)
	}
}

// updateCopy persists a repository copy status change and returns the
// fresh copy
func (o *Orchestrator) updateCopy(ctx context.Context, id string, status types.CopyStatus) (*types.RepositoryCopy, error) {
	entity, err := o.client.Read(ctx, id, types.EntityTypeRepositoryCopy)
	if err != nil {
		return nil, fmt.Errorf("reading repository copy %s: %w", id, err)
	}
	rc := entity.(*types.RepositoryCopy)
	rc.CopyStatus = status
	fresh, err := o.client.UpdateAndRead(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("updating repository copy %s: %w", id, err)
	}
	return fresh.(*types.RepositoryCopy), nil
}
