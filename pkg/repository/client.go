package repository

import (
	"context"
	"errors"

	"github.com/carrel-io/ferry/pkg/types"
)

var (
	// ErrNotFound indicates the entity does not exist upstream
	ErrNotFound = errors.New("repository: entity not found")

	// ErrConflict indicates a conditional write lost the race: the
	// entity changed upstream since it was read
	ErrConflict = errors.New("repository: conditional write conflict")
)

// Client is the contract Ferry uses against the upstream repository.
// Implementations must be safe for concurrent use.
type Client interface {
	// Read returns the current state of an entity, including its
	// optimistic-concurrency tag. Returns ErrNotFound if absent.
	Read(ctx context.Context, id string, t types.EntityType) (types.Entity, error)

	// Create persists a new entity and returns it with its assigned
	// identifier and tag.
	Create(ctx context.Context, e types.Entity) (types.Entity, error)

	// UpdateAndRead performs a conditional write guarded by the
	// entity's tag and returns the fresh state. Returns ErrConflict
	// when the tag no longer matches.
	UpdateAndRead(ctx context.Context, e types.Entity) (types.Entity, error)

	// Incoming returns the identifiers of entities that reference id,
	// grouped by relation name.
	Incoming(ctx context.Context, id string) (map[string][]string, error)

	// FindByAttribute returns the identifiers of entities of type t
	// whose attribute attr equals value.
	FindByAttribute(ctx context.Context, t types.EntityType, attr, value string) ([]string, error)
}
