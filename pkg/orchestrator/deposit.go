package orchestrator

import (
	"context"

	"github.com/carrel-io/ferry/pkg/types"
)

// ProcessDeposit routes a deposit change: terminal deposits fold into
// their submission's aggregated status, intermediate ones get their
// status reference refreshed.
func (o *Orchestrator) ProcessDeposit(ctx context.Context, id string) {
	entity, err := o.client.Read(ctx, id, types.EntityTypeDeposit)
	if err != nil {
		o.logger.Warn().Err(err).Str("deposit", id).Msg("could not read deposit")
		return
	}
	d := entity.(*types.Deposit)

	if d.Terminal() {
		o.Aggregate(ctx, d.Submission)
		return
	}
	o.Refresh(ctx, id)
}
