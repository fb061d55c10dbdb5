package worker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carrel-io/ferry/pkg/cse"
	"github.com/carrel-io/ferry/pkg/faults"
	"github.com/carrel-io/ferry/pkg/log"
	"github.com/carrel-io/ferry/pkg/metrics"
	"github.com/carrel-io/ferry/pkg/packager"
	"github.com/carrel-io/ferry/pkg/policy"
	"github.com/carrel-io/ferry/pkg/repository"
	"github.com/carrel-io/ferry/pkg/types"
)

// Task packages one submission for one target and transmits it. The
// physical transfer and the logical outcome are two separate critical
// sections over the deposit.
type Task struct {
	DepositID  string
	Submission *types.DepositSubmission
	Packager   *packager.Packager

	// Admit is the pre-condition for the physical transfer. Defaults
	// to admitting freshly created deposits; the retry driver widens
	// it to failed ones.
	Admit func(*types.Deposit) bool

	engine     *cse.Engine
	client     repository.Client
	sink       faults.Sink
	onComplete func(ctx context.Context, depositID string)
	logger     zerolog.Logger
}

// TaskDeps are the collaborators a task runs against
type TaskDeps struct {
	Engine     *cse.Engine
	Client     repository.Client
	Sink       faults.Sink
	OnComplete func(ctx context.Context, depositID string)
}

// NewTask creates a deposit task
func NewTask(deps TaskDeps, depositID string, ds *types.DepositSubmission, p *packager.Packager) *Task {
	return &Task{
		DepositID:  depositID,
		Submission: ds,
		Packager:   p,
		Admit:      policy.AcceptNewDeposit,
		engine:     deps.Engine,
		client:     deps.Client,
		sink:       deps.Sink,
		onComplete: deps.OnComplete,
		logger:     log.WithDepositID(depositID),
	}
}

// Run executes the task. All failures are routed to the error sink;
// Run itself never returns an error to the pool.
func (t *Task) Run(ctx context.Context) {
	resp, ok := t.transfer(ctx)
	if !ok {
		return
	}

	switch {
	case resp.Receipt == nil:
		// Nothing target-side to record; the deposit stays submitted
		// until something else resolves it.
	case resp.Receipt.StatusRef != "":
		t.recordAsync(ctx, resp.Receipt)
	default:
		t.recordSync(ctx, resp.Receipt)
	}

	metrics.TasksExecutedTotal.WithLabelValues("ok").Inc()
	if t.onComplete != nil {
		t.onComplete(ctx, t.DepositID)
	}
}

// transfer is the physical critical section: assemble, open a session,
// send, and mark the deposit submitted.
func (t *Task) transfer(ctx context.Context) (packager.Response, bool) {
	var resp packager.Response

	result := t.engine.PerformCritical(ctx, t.DepositID, types.EntityTypeDeposit,
		func(e types.Entity) bool {
			return t.Admit(e.(*types.Deposit))
		},
		func(e types.Entity) (any, error) {
			d := e.(*types.Deposit)

			stream, err := t.Packager.Assembler.Assemble(ctx, t.Submission, t.Packager.Config.AssemblerOptions())
			if err != nil {
				return nil, fmt.Errorf("assembling package: %w", err)
			}

			params := t.Packager.Config.TransportConfig.ProtocolBinding
			session, err := t.Packager.Transport.Open(ctx, params)
			if err != nil {
				return nil, fmt.Errorf("opening transport session: %w", err)
			}
			// The session must be released on every exit path,
			// including a panic inside Send.
			defer session.Close()

			resp, err = session.Send(ctx, stream, params)
			if err != nil {
				return nil, fmt.Errorf("sending package: %w", err)
			}
			if !resp.Success {
				return nil, fmt.Errorf("transport rejected package: %w", resp.Cause)
			}

			d.Status = types.DepositStatusSubmitted
			return resp, nil
		},
		func(e types.Entity, v any) bool {
			return e.(*types.Deposit).Status == types.DepositStatusSubmitted && resp.Success
		})

	switch {
	case result.Success:
		metrics.DepositsTotal.WithLabelValues(string(types.DepositStatusSubmitted)).Inc()
		t.logger.Info().Str("target", t.Packager.Name).Msg("package transferred")
		return resp, true
	case result.PolicyMiss():
		metrics.TasksExecutedTotal.WithLabelValues("policy_miss").Inc()
		t.logger.Debug().Msg("deposit not in an admissible state, dropping task")
		return resp, false
	default:
		metrics.TasksExecutedTotal.WithLabelValues("failed").Inc()
		t.sink.HandleError(ctx, faults.ForDeposit(t.DepositID, result.Cause))
		return resp, false
	}
}

// recordAsync attaches the receipt's status reference and a
// placeholder copy for a target that acknowledges asynchronously
func (t *Task) recordAsync(ctx context.Context, receipt *packager.Receipt) {
	statusRef := t.Packager.Config.DepositConfig.StatusRefRewrite.Apply(receipt.StatusRef)

	result := t.engine.PerformCritical(ctx, t.DepositID, types.EntityTypeDeposit,
		nil, // this update always applies
		func(e types.Entity) (any, error) {
			d := e.(*types.Deposit)

			rc := &types.RepositoryCopy{CopyStatus: types.CopyStatusInProgress}
			if receipt.ItemURL != "" {
				rc.ExternalIDs = []string{receipt.ItemURL}
				rc.AccessURL = receipt.ItemURL
			}
			created, err := t.client.Create(ctx, rc)
			if err != nil {
				return nil, fmt.Errorf("creating repository copy: %w", err)
			}

			d.StatusRef = statusRef
			d.RepositoryCopy = created.EntityID()
			return created, nil
		},
		nil)

	if !result.Success {
		t.sink.HandleError(ctx, faults.ForDeposit(t.DepositID, result.Cause))
		return
	}
	t.logger.Info().Str("status_ref", statusRef).Msg("status reference attached")
}

// recordSync resolves a synchronous target: the transfer itself is the
// acknowledgement, so the deposit is accepted and the copy complete.
func (t *Task) recordSync(ctx context.Context, receipt *packager.Receipt) {
	result := t.engine.PerformCritical(ctx, t.DepositID, types.EntityTypeDeposit,
		func(e types.Entity) bool {
			return e.(*types.Deposit).Status == types.DepositStatusSubmitted
		},
		func(e types.Entity) (any, error) {
			d := e.(*types.Deposit)

			rc := &types.RepositoryCopy{CopyStatus: types.CopyStatusComplete}
			if receipt.ItemURL != "" {
				rc.ExternalIDs = []string{receipt.ItemURL}
				rc.AccessURL = receipt.ItemURL
			}
			created, err := t.client.Create(ctx, rc)
			if err != nil {
				return nil, fmt.Errorf("creating repository copy: %w", err)
			}

			d.RepositoryCopy = created.EntityID()
			d.Status = types.DepositStatusAccepted
			return created, nil
		},
		func(e types.Entity, v any) bool {
			d := e.(*types.Deposit)
			return d.Status == types.DepositStatusAccepted && d.RepositoryCopy != ""
		})

	if !result.Success {
		t.sink.HandleError(ctx, faults.ForDeposit(t.DepositID, result.Cause))
		return
	}
	metrics.DepositsTotal.WithLabelValues(string(types.DepositStatusAccepted)).Inc()
	t.logger.Info().Msg("deposit accepted synchronously")
}
