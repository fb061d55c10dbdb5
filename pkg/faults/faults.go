package faults

import (
	"errors"
	"fmt"

	"github.com/carrel-io/ferry/pkg/types"
)

// EntityError is a failure scoped to a persistent entity. The central
// handler marks the referenced entity failed iff it is not terminal.
type EntityError struct {
	EntityID   string
	EntityType types.EntityType

	// Remedial failures require human intervention; automated retry
	// will not help and no state is mutated for them.
	Remedial bool

	// Config failures come from missing or malformed target
	// configuration and are logged in their own category.
	Config bool

	Err error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.EntityType, e.EntityID, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

// ForSubmission scopes an error to a submission
func ForSubmission(id string, err error) *EntityError {
	return &EntityError{EntityID: id, EntityType: types.EntityTypeSubmission, Err: err}
}

// ForDeposit scopes an error to a deposit
func ForDeposit(id string, err error) *EntityError {
	return &EntityError{EntityID: id, EntityType: types.EntityTypeDeposit, Err: err}
}

// AsEntityError extracts the entity scope from an error chain, if any
func AsEntityError(err error) (*EntityError, bool) {
	var ee *EntityError
	ok := errors.As(err, &ee)
	return ee, ok
}

// IsRemedial reports whether the error chain carries a remedial
// entity error
func IsRemedial(err error) bool {
	ee, ok := AsEntityError(err)
	return ok && ee.Remedial
}
