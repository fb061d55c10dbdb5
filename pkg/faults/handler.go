package faults

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/carrel-io/ferry/pkg/cse"
	"github.com/carrel-io/ferry/pkg/log"
	"github.com/carrel-io/ferry/pkg/metrics"
	"github.com/carrel-io/ferry/pkg/types"
)

// Sink consumes uncaught errors from listeners, worker tasks, and
// rejected pool submissions
type Sink interface {
	HandleError(ctx context.Context, err error)
}

// Handler is the process-wide error sink. When an error carries an
// entity reference and that entity is not terminal, the handler marks
// it failed through the critical-section engine; otherwise it only
// logs.
type Handler struct {
	engine *cse.Engine
	logger zerolog.Logger
}

// NewHandler creates the central error handler
func NewHandler(engine *cse.Engine) *Handler {
	return &Handler{
		engine: engine,
		logger: log.WithComponent("errorhandler"),
	}
}

// HandleError implements Sink
func (h *Handler) HandleError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	ee, ok := AsEntityError(err)
	if !ok {
		h.logger.Error().Err(err).Msg("unscoped failure")
		return
	}

	event := h.logger.Error()
	if ee.Config {
		// Distinct category so operators can tell configuration
		// problems from transient I/O.
		event = event.Str("category", "config")
	}
	event.Err(err).Str("entity", ee.EntityID).Str("entity_type", string(ee.EntityType)).
		Msg("entity-scoped failure")

	if ee.Remedial {
		h.logger.Warn().Str("entity", ee.EntityID).
			Msg("remedial failure: leaving entity state untouched, human intervention required")
		return
	}

	h.markFailed(ctx, ee)
}

func (h *Handler) markFailed(ctx context.Context, ee *EntityError) {
	var result cse.Result
	switch ee.EntityType {
	case types.EntityTypeSubmission:
		result = h.engine.PerformCritical(ctx, ee.EntityID, types.EntityTypeSubmission,
			func(e types.Entity) bool {
				return !e.(*types.Submission).Terminal()
			},
			func(e types.Entity) (any, error) {
				e.(*types.Submission).MarkFailed()
				return nil, nil
			},
			nil)
	case types.EntityTypeDeposit:
		result = h.engine.PerformCritical(ctx, ee.EntityID, types.EntityTypeDeposit,
			func(e types.Entity) bool {
				return !e.(*types.Deposit).Terminal()
			},
			func(e types.Entity) (any, error) {
				e.(*types.Deposit).MarkFailed()
				return nil, nil
			},
			nil)
		if result.Success {
			metrics.DepositsTotal.WithLabelValues(string(types.DepositStatusFailed)).Inc()
		}
	default:
		h.logger.Error().Str("entity", ee.EntityID).Str("entity_type", string(ee.EntityType)).
			Msg("no failed variant for entity type")
		return
	}

	switch {
	case result.Success:
		h.logger.Info().Str("entity", ee.EntityID).Msg("entity marked failed")
	case result.PolicyMiss():
		// Already terminal; drop.
		h.logger.Debug().Str("entity", ee.EntityID).Msg("entity already terminal, not marking failed")
	default:
		h.logger.Error().Err(result.Cause).Str("entity", ee.EntityID).Msg("failed to mark entity failed")
	}
}
