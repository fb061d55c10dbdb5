package cse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrel-io/ferry/pkg/repository"
	"github.com/carrel-io/ferry/pkg/types"
)

func seedSubmission(t *testing.T, client *repository.InMemClient, status types.AggregatedStatus) *types.Submission {
	t.Helper()
	s := &types.Submission{
		ID:               "mem://submissions/1",
		Submitted:        true,
		Source:           types.SourceUser,
		AggregatedStatus: status,
	}
	client.Put(s)
	return s
}

func TestPerformCriticalSuccess(t *testing.T) {
	client := repository.NewInMemClient()
	seedSubmission(t, client, types.AggregatedStatusNotStarted)
	engine := New(client)

	result := engine.PerformCritical(context.Background(), "mem://submissions/1", types.EntityTypeSubmission,
		func(e types.Entity) bool {
			return e.(*types.Submission).AggregatedStatus == types.AggregatedStatusNotStarted
		},
		func(e types.Entity) (any, error) {
			e.(*types.Submission).AggregatedStatus = types.AggregatedStatusInProgress
			return "claimed", nil
		},
		func(e types.Entity, v any) bool {
			return e.(*types.Submission).AggregatedStatus == types.AggregatedStatusInProgress
		})

	require.True(t, result.Success)
	assert.Equal(t, "claimed", result.Value)

	fresh, err := client.Read(context.Background(), "mem://submissions/1", types.EntityTypeSubmission)
	require.NoError(t, err)
	assert.Equal(t, types.AggregatedStatusInProgress, fresh.(*types.Submission).AggregatedStatus)
}

func TestPerformCriticalPolicyMiss(t *testing.T) {
	client := repository.NewInMemClient()
	seedSubmission(t, client, types.AggregatedStatusAccepted)
	engine := New(client)

	mutated := false
	result := engine.PerformCritical(context.Background(), "mem://submissions/1", types.EntityTypeSubmission,
		func(e types.Entity) bool {
			return !e.(*types.Submission).Terminal()
		},
		func(e types.Entity) (any, error) {
			mutated = true
			return nil, nil
		},
		nil)

	assert.False(t, result.Success)
	assert.True(t, result.PolicyMiss())
	assert.False(t, mutated, "critical function must not run after a pre-condition miss")

	fresh, err := client.Read(context.Background(), "mem://submissions/1", types.EntityTypeSubmission)
	require.NoError(t, err)
	assert.Equal(t, types.AggregatedStatusAccepted, fresh.(*types.Submission).AggregatedStatus)
}

func TestPerformCriticalConflictRetry(t *testing.T) {
	client := repository.NewInMemClient()
	seedSubmission(t, client, types.AggregatedStatusNotStarted)
	client.FailNextUpdates = 2

	engine := New(client)
	result := engine.PerformCritical(context.Background(), "mem://submissions/1", types.EntityTypeSubmission,
		nil,
		func(e types.Entity) (any, error) {
			e.(*types.Submission).AggregatedStatus = types.AggregatedStatusInProgress
			return nil, nil
		},
		nil)

	require.True(t, result.Success, "two conflicts are inside the retry bound")
	assert.Equal(t, 0, client.FailNextUpdates)
	assert.Equal(t, types.AggregatedStatusInProgress, result.Entity.(*types.Submission).AggregatedStatus)
}

func TestPerformCriticalConflictExhausted(t *testing.T) {
	client := repository.NewInMemClient()
	seedSubmission(t, client, types.AggregatedStatusNotStarted)
	client.FailNextUpdates = 100

	engine := New(client, WithMaxAttempts(3))
	result := engine.PerformCritical(context.Background(), "mem://submissions/1", types.EntityTypeSubmission,
		nil,
		func(e types.Entity) (any, error) {
			e.(*types.Submission).AggregatedStatus = types.AggregatedStatusInProgress
			return nil, nil
		},
		nil)

	require.False(t, result.Success)
	assert.ErrorIs(t, result.Cause, ErrConflictExhausted)
	assert.Equal(t, 97, client.FailNextUpdates, "exactly maxAttempts writes are tried")

	fresh, err := client.Read(context.Background(), "mem://submissions/1", types.EntityTypeSubmission)
	require.NoError(t, err)
	assert.Equal(t, types.AggregatedStatusNotStarted, fresh.(*types.Submission).AggregatedStatus,
		"an exhausted critical section leaves the entity unchanged")
}

func TestPerformCriticalSkipWrite(t *testing.T) {
	client := repository.NewInMemClient()
	s := seedSubmission(t, client, types.AggregatedStatusInProgress)
	engine := New(client)

	result := engine.PerformCritical(context.Background(), s.ID, types.EntityTypeSubmission,
		nil,
		func(e types.Entity) (any, error) {
			return nil, SkipWrite
		},
		nil)

	require.True(t, result.Success)

	fresh, err := client.Read(context.Background(), s.ID, types.EntityTypeSubmission)
	require.NoError(t, err)
	assert.Equal(t, s.Tag(), fresh.Tag(), "skipping the write must not bump the tag")
}

func TestPerformCriticalCriticalError(t *testing.T) {
	client := repository.NewInMemClient()
	seedSubmission(t, client, types.AggregatedStatusNotStarted)
	engine := New(client)

	boom := errors.New("assembler exploded")
	result := engine.PerformCritical(context.Background(), "mem://submissions/1", types.EntityTypeSubmission,
		nil,
		func(e types.Entity) (any, error) {
			return nil, boom
		},
		nil)

	require.False(t, result.Success)
	assert.ErrorIs(t, result.Cause, boom)
	assert.False(t, result.PolicyMiss())
}

func TestPerformCriticalPostconditionMiss(t *testing.T) {
	client := repository.NewInMemClient()
	seedSubmission(t, client, types.AggregatedStatusNotStarted)
	engine := New(client)

	result := engine.PerformCritical(context.Background(), "mem://submissions/1", types.EntityTypeSubmission,
		nil,
		func(e types.Entity) (any, error) {
			e.(*types.Submission).AggregatedStatus = types.AggregatedStatusInProgress
			return nil, nil
		},
		func(e types.Entity, v any) bool {
			return false
		})

	require.False(t, result.Success)
	assert.ErrorIs(t, result.Cause, ErrPostcondition)

	// The mutation stands; post-conditions do not roll back.
	fresh, err := client.Read(context.Background(), "mem://submissions/1", types.EntityTypeSubmission)
	require.NoError(t, err)
	assert.Equal(t, types.AggregatedStatusInProgress, fresh.(*types.Submission).AggregatedStatus)
}

func TestPerformCriticalMissingEntity(t *testing.T) {
	client := repository.NewInMemClient()
	engine := New(client)

	result := engine.PerformCritical(context.Background(), "mem://submissions/none", types.EntityTypeSubmission,
		nil,
		func(e types.Entity) (any, error) { return nil, nil },
		nil)

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Cause, repository.ErrNotFound)
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	km.Lock("a")

	acquired := make(chan struct{})
	go func() {
		km.Lock("a")
		close(acquired)
		km.Unlock("a")
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock(a) must block while the first is held")
	case <-time.After(50 * time.Millisecond):
	}

	km.Unlock("a")
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock(a) never acquired after Unlock")
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()
	km.Lock("a")
	defer km.Unlock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Lock(b) must not block on a held Lock(a)")
	}
}
