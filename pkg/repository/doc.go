/*
Package repository is Ferry's client for the upstream repository API.

The Client interface exposes exactly the operations the engine needs:
read, create, ETag-conditioned update, incoming-link lookup, and
attribute search. HTTPClient implements it against the upstream JSON
CRUD API; InMemClient implements the same semantics in process for
tests.

A conditional write that loses a race surfaces as ErrConflict and is
retried by the critical-section engine (pkg/cse), never here.
*/
package repository
