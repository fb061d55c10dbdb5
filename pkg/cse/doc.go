/*
Package cse implements the critical-section engine: Ferry's
compare-and-swap primitive against the upstream repository.

Every entity mutation in the engine goes through PerformCritical, which
runs four phases under a process-local mutex keyed by the entity
identifier:

 1. read the current entity
 2. evaluate the pre-condition; a miss is a benign drop, not an error
 3. run the critical function (in-memory mutation plus a computed value)
 4. conditionally write (ETag-guarded), re-evaluating from a fresh read
    on conflict, up to a bounded number of attempts with exponential
    backoff
 5. evaluate the post-condition against the freshly written entity

The ETag retry loop linearizes mutations per entity without any global
locking. The keyed mutex is not required for correctness — the upstream
ETag check would catch within-process races too — but it prevents retry
storms when a burst of events lands on one entity.

PerformCritical never returns a bare error; every outcome, including a
failure inside the critical function, is carried in Result.
*/
package cse
