// Package orchestrator drives submissions through deposit, transfer,
// and aggregation.
//
// The orchestrator reacts to entity events from the upstream
// repository. A submission event that passes the admission policy is
// claimed (its aggregated status moves to in-progress) and fanned out
// into one deposit per target repository; each deposit becomes a task
// on the worker pool. A deposit event either folds a terminal deposit
// into its submission's aggregated status or refreshes an intermediate
// deposit against its status reference.
//
// Every state transition runs through the critical-section engine, so
// concurrent events about the same entity advance it at most once.
// Transitions the policies reject are dropped silently; transitions
// that fail are routed to the fault sink, which marks the entity
// failed unless the fault is remedial.
//
// Two drivers, RetryFailed and RefreshSubmitted, re-enqueue failed
// deposits and re-poll submitted ones. They serve both the one-shot
// command surface and the periodic Jobs loop that runs them on an
// interval while the service listens.
package orchestrator
