package cse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/carrel-io/ferry/pkg/log"
	"github.com/carrel-io/ferry/pkg/metrics"
	"github.com/carrel-io/ferry/pkg/repository"
	"github.com/carrel-io/ferry/pkg/types"
)

const (
	// DefaultMaxAttempts bounds conditional-write retries per critical
	// section
	DefaultMaxAttempts = 10

	initialBackoff = 50 * time.Millisecond
	maxBackoff     = 1 * time.Second
)

var (
	// ErrPrecondition reports a pre-condition miss. This is a normal
	// outcome, not a fault: the entity was not in an admissible state.
	ErrPrecondition = errors.New("cse: pre-condition failed")

	// ErrPostcondition reports a post-condition miss. The mutation
	// stands; there is no rollback.
	ErrPostcondition = errors.New("cse: post-condition failed")

	// ErrConflictExhausted reports a conditional write that stayed
	// conflicted past the retry bound.
	ErrConflictExhausted = errors.New("cse: conflict retries exhausted")

	// SkipWrite, returned by a critical function, reports that the
	// entity is already in the desired state. The critical section
	// succeeds without performing a write.
	SkipWrite = errors.New("cse: no write needed")
)

// PreCondition decides whether the entity is in an admissible state
type PreCondition func(types.Entity) bool

// CriticalFunc mutates the entity in memory and returns an arbitrary
// computed value. An error aborts the critical section and becomes the
// Result cause.
type CriticalFunc func(types.Entity) (any, error)

// PostCondition validates the freshly persisted entity together with
// the value computed by the critical function
type PostCondition func(types.Entity, any) bool

// Result is the outcome of one critical section. It never panics and
// no method of the engine returns a bare error: every outcome is
// carried here.
type Result struct {
	Success bool
	Entity  types.Entity
	Value   any
	Cause   error
}

// PolicyMiss reports whether the result is a benign pre-condition miss
func (r Result) PolicyMiss() bool {
	return !r.Success && errors.Is(r.Cause, ErrPrecondition)
}

// Engine performs compare-and-swap critical sections against the
// upstream repository. Equal entity identifiers serialize within the
// process; conflicting conditional writes retry with backoff up to a
// fixed bound.
type Engine struct {
	client      repository.Client
	locks       *keyedMutex
	maxAttempts int
	logger      zerolog.Logger
}

// Option configures the engine
type Option func(*Engine)

// WithMaxAttempts overrides the conflict retry bound
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// New creates a critical-section engine over the given client
func New(client repository.Client, opts ...Option) *Engine {
	e := &Engine{
		client:      client,
		locks:       newKeyedMutex(),
		maxAttempts: DefaultMaxAttempts,
		logger:      log.WithComponent("cse"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PerformCritical runs pre → critical → conditional write → post for
// the entity identified by id, serialized per identifier within the
// process and linearized against the upstream by its ETag.
func (e *Engine) PerformCritical(ctx context.Context, id string, t types.EntityType,
	pre PreCondition, critical CriticalFunc, post PostCondition) Result {

	e.locks.Lock(id)
	defer e.locks.Unlock(id)

	entity, err := e.client.Read(ctx, id, t)
	if err != nil {
		return Result{Cause: fmt.Errorf("reading %s: %w", id, err)}
	}

	var (
		fresh types.Entity
		value any
	)

	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			// A conflict means our copy is stale; work from the
			// current upstream state.
			metrics.CSERetriesTotal.Inc()
			entity, err = e.client.Read(ctx, id, t)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("re-reading %s: %w", id, err))
			}
		}

		if pre != nil && !pre(entity) {
			return backoff.Permanent(fmt.Errorf("%s: %w", id, ErrPrecondition))
		}

		value, err = critical(entity)
		if err != nil {
			if errors.Is(err, SkipWrite) {
				fresh = entity
				return nil
			}
			return backoff.Permanent(fmt.Errorf("critical update of %s: %w", id, err))
		}

		fresh, err = e.client.UpdateAndRead(ctx, entity)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				metrics.CSEConflictsTotal.Inc()
				e.logger.Debug().Str("entity", id).Int("attempt", attempt).Msg("conditional write conflict")
				return err // retryable
			}
			return backoff.Permanent(fmt.Errorf("writing %s: %w", id, err))
		}
		return nil
	}

	// BackOff values are stateful; always build a fresh one per
	// critical section.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.MaxInterval = maxBackoff
	bo.MaxElapsedTime = 0
	err = backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(e.maxAttempts-1)), ctx))

	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			e.logger.Warn().Str("entity", id).Int("attempts", attempt).
				Msg("conditional write stayed conflicted past the retry bound")
			return Result{Entity: entity, Cause: fmt.Errorf("%s after %d attempts: %w: %w", id, attempt, ErrConflictExhausted, err)}
		}
		return Result{Entity: entity, Cause: err}
	}

	if post != nil && !post(fresh, value) {
		return Result{Entity: fresh, Value: value,
			Cause: fmt.Errorf("%s: %w", id, ErrPostcondition)}
	}

	return Result{Success: true, Entity: fresh, Value: value}
}
