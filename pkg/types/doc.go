/*
Package types defines Ferry's persistent entity model and status algebra.

Three persistent entities track the lifecycle of a custody transfer:

	┌────────────┐ 1     n ┌─────────┐ 1     0..1 ┌────────────────┐
	│ Submission ├─────────┤ Deposit ├────────────┤ RepositoryCopy │
	└────────────┘         └─────────┘            └────────────────┘

Submission is created by an external actor and fans out into one Deposit
per target repository. A Deposit that completes a byte-level transfer
gains a RepositoryCopy recording where the package lives downstream.

Every status enum is partitioned into intermediate and terminal sets;
the Terminal() methods are the single source of truth for that
partition. Once an entity reaches a terminal status the engine never
mutates it again.

Status invariants maintained by the engine:

  - Deposit accepted  ⇔ RepositoryCopy complete
  - Deposit rejected  ⇔ RepositoryCopy rejected
  - Deposit submitted ⇒ RepositoryCopy in-progress
  - Deposit failed    ⇒ no RepositoryCopy

All entities carry an optimistic-concurrency tag (the HTTP ETag observed
at read time) which conditions every write; see pkg/cse.

DepositSubmission is the in-memory normalized view of a Submission used
by packaging. It is built on demand (pkg/builder) and never persisted.
*/
package types
