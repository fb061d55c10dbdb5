// Package policy holds the pure admission predicates of the deposit
// state machine. Every predicate answers one question about one entity
// and performs no I/O; the critical-section engine evaluates them
// against freshly read state.
package policy
