package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/carrel-io/ferry/pkg/builder"
	"github.com/carrel-io/ferry/pkg/cse"
	"github.com/carrel-io/ferry/pkg/events"
	"github.com/carrel-io/ferry/pkg/faults"
	"github.com/carrel-io/ferry/pkg/journal"
	"github.com/carrel-io/ferry/pkg/log"
	"github.com/carrel-io/ferry/pkg/packager"
	"github.com/carrel-io/ferry/pkg/repository"
	"github.com/carrel-io/ferry/pkg/worker"
)

// Config wires an orchestrator
type Config struct {
	Client   repository.Client
	Engine   *cse.Engine
	Registry *packager.Registry
	Pool     *worker.Pool
	Sink     faults.Sink

	// Journal is optional; without it, duplicate-dispatch suppression
	// relies on the upstream state alone.
	Journal *journal.Journal

	// RefreshDelay is the minimum wait between a transfer and the
	// first poll of its status reference.
	RefreshDelay time.Duration
}

// Orchestrator drives the deposit state machine: it claims submissions,
// fans out deposit tasks, aggregates terminal outcomes, and refreshes
// asynchronous acknowledgements.
type Orchestrator struct {
	client   repository.Client
	engine   *cse.Engine
	registry *packager.Registry
	builder  *builder.Builder
	pool     *worker.Pool
	sink     faults.Sink
	journal  *journal.Journal

	refreshDelay time.Duration
	logger       zerolog.Logger
}

// New creates an orchestrator
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		client:       cfg.Client,
		engine:       cfg.Engine,
		registry:     cfg.Registry,
		builder:      builder.New(cfg.Client),
		pool:         cfg.Pool,
		sink:         cfg.Sink,
		journal:      cfg.Journal,
		refreshDelay: cfg.RefreshDelay,
		logger:       log.WithComponent("orchestrator"),
	}
}

// HandleSubmissionEvent adapts the submission listener pool to the
// submission processor
func (o *Orchestrator) HandleSubmissionEvent(ctx context.Context, e *events.Event) {
	o.ProcessSubmission(ctx, e.EntityID)
}

// HandleDepositEvent adapts the deposit listener pool to the deposit
// processor
func (o *Orchestrator) HandleDepositEvent(ctx context.Context, e *events.Event) {
	o.ProcessDeposit(ctx, e.EntityID)
}

// taskDeps builds the collaborator set handed to deposit tasks. The
// completion hook feeds the deposit back through the deposit processor
// after the configured delay, which is what resolves asynchronous
// targets without waiting for an upstream event.
func (o *Orchestrator) taskDeps() worker.TaskDeps {
	return worker.TaskDeps{
		Engine: o.engine,
		Client: o.client,
		Sink:   o.sink,
		OnComplete: func(ctx context.Context, depositID string) {
			if o.refreshDelay <= 0 {
				o.ProcessDeposit(ctx, depositID)
				return
			}
			go func() {
				select {
				case <-time.After(o.refreshDelay):
					o.ProcessDeposit(ctx, depositID)
				case <-ctx.Done():
				}
			}()
		},
	}
}
