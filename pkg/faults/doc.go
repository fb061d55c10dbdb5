// Package faults carries the failure taxonomy and the central error
// handler. Failures scoped to an entity mark that entity failed unless
// it is terminal or the failure is remedial; unscoped failures are
// logged and dropped.
package faults
