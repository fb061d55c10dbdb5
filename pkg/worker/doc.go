/*
Package worker executes deposit tasks on a bounded pool.

A Task is one custody-transfer attempt: assemble the package, open a
transport session, send, and record the outcome — all as critical
sections over the Deposit (pkg/cse). The pool's queue is bounded; when
it is full, Submit rejects and the caller surfaces the rejection
through the error handler so the deposit ends up failed rather than
silently dropped.

Transport sessions are per-task and are closed on every exit path.
*/
package worker
