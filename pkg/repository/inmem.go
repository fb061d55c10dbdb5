package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/carrel-io/ferry/pkg/types"
)

// InMemClient is an in-process Client with the same optimistic
// concurrency semantics as the upstream HTTP API: every write bumps the
// entity's tag, and a conditional write with a stale tag fails with
// ErrConflict. It backs the test suites of the packages that sit on
// Client and is handy for local smoke runs.
type InMemClient struct {
	mu       sync.Mutex
	entities map[string]*stored

	// FailNextUpdates injects n consecutive ErrConflict results on
	// UpdateAndRead regardless of tag, for exercising retry paths.
	FailNextUpdates int
}

type stored struct {
	data    []byte
	etype   types.EntityType
	version int
}

// NewInMemClient creates an empty in-memory client
func NewInMemClient() *InMemClient {
	return &InMemClient{entities: make(map[string]*stored)}
}

// Put stores an entity directly, bypassing tag checks. Test setup only.
func (c *InMemClient) Put(e types.Entity) types.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		panic(fmt.Sprintf("inmem: marshal %s: %v", e.EntityID(), err))
	}
	s, ok := c.entities[e.EntityID()]
	if !ok {
		s = &stored{etype: e.EntityType()}
		c.entities[e.EntityID()] = s
	}
	s.data = data
	s.version++
	e.SetTag(strconv.Itoa(s.version))
	return e
}

// Read implements Client
func (c *InMemClient) Read(ctx context.Context, id string, t types.EntityType) (types.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked(id, t)
}

func (c *InMemClient) readLocked(id string, t types.EntityType) (types.Entity, error) {
	s, ok := c.entities[id]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", id, ErrNotFound)
	}
	e, err := Unmarshal(s.data, t)
	if err != nil {
		return nil, err
	}
	e.SetTag(strconv.Itoa(s.version))
	return e, nil
}

// Create implements Client
func (c *InMemClient) Create(ctx context.Context, e types.Entity) (types.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := e.EntityID()
	if id == "" {
		id = fmt.Sprintf("mem://%s/%s", collection(e.EntityType()), uuid.NewString())
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	// Re-decode with the assigned identifier
	fresh, err := Unmarshal(data, e.EntityType())
	if err != nil {
		return nil, err
	}
	setID(fresh, id)
	data, err = json.Marshal(fresh)
	if err != nil {
		return nil, err
	}
	c.entities[id] = &stored{data: data, etype: e.EntityType(), version: 1}
	fresh.SetTag("1")
	return fresh, nil
}

// UpdateAndRead implements Client
func (c *InMemClient) UpdateAndRead(ctx context.Context, e types.Entity) (types.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailNextUpdates > 0 {
		c.FailNextUpdates--
		return nil, fmt.Errorf("update %s: %w", e.EntityID(), ErrConflict)
	}

	s, ok := c.entities[e.EntityID()]
	if !ok {
		return nil, fmt.Errorf("update %s: %w", e.EntityID(), ErrNotFound)
	}
	if e.Tag() != strconv.Itoa(s.version) {
		return nil, fmt.Errorf("update %s: %w", e.EntityID(), ErrConflict)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	s.data = data
	s.version++
	return c.readLocked(e.EntityID(), e.EntityType())
}

// Incoming implements Client. Relations are derived from the stored
// entities themselves: Deposits and Files reference their Submission
// through a "submission" relation.
func (c *InMemClient) Incoming(ctx context.Context, id string) (map[string][]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string][]string)
	for eid, s := range c.entities {
		switch s.etype {
		case types.EntityTypeDeposit:
			var d types.Deposit
			if err := json.Unmarshal(s.data, &d); err != nil {
				continue
			}
			if d.Submission == id {
				out["submission"] = append(out["submission"], eid)
			}
		case types.EntityTypeFile:
			var f types.File
			if err := json.Unmarshal(s.data, &f); err != nil {
				continue
			}
			if f.Submission == id {
				out["submission"] = append(out["submission"], eid)
			}
		}
	}
	return out, nil
}

// FindByAttribute implements Client for the attributes the engine
// actually searches on
func (c *InMemClient) FindByAttribute(ctx context.Context, t types.EntityType, attr, value string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for eid, s := range c.entities {
		if s.etype != t {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(s.data, &fields); err != nil {
			continue
		}
		v, ok := fields[attr]
		if !ok {
			// Absent attribute matches the empty value (a search for
			// dirty deposits must find status-less ones)
			if value == "" {
				ids = append(ids, eid)
			}
			continue
		}
		if str, ok := v.(string); ok && str == value {
			ids = append(ids, eid)
		}
	}
	return ids, nil
}

// Corrupt overwrites a stored entity with undecodable bytes. Test use
// only: aggregation must skip such children.
func (c *InMemClient) Corrupt(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.entities[id]; ok {
		s.data = []byte("{not json")
	}
}

func setID(e types.Entity, id string) {
	switch v := e.(type) {
	case *types.Submission:
		v.ID = id
	case *types.Deposit:
		v.ID = id
	case *types.RepositoryCopy:
		v.ID = id
	case *types.Repository:
		v.ID = id
	case *types.File:
		v.ID = id
	}
}
