package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrel-io/ferry/pkg/cse"
	"github.com/carrel-io/ferry/pkg/policy"
	"github.com/carrel-io/ferry/pkg/repository"
	"github.com/carrel-io/ferry/pkg/types"
)

func admitNothing(d *types.Deposit) bool { return false }

// idleTask builds a task whose Run is a harmless policy miss
func idleTask(t *testing.T) *Task {
	t.Helper()
	client := repository.NewInMemClient()
	client.Put(&types.Deposit{ID: "mem://deposits/idle"})
	task := NewTask(TaskDeps{
		Engine: cse.New(client),
		Client: client,
	}, "mem://deposits/idle", &types.DepositSubmission{}, testPackager(nil, nil))
	task.Admit = admitNothing
	return task
}

func TestPoolSaturationRejects(t *testing.T) {
	pool := NewPool(1, 2)
	// Not started: the queue fills and the pool must reject, not block.

	require.NoError(t, pool.Submit(idleTask(t)))
	require.NoError(t, pool.Submit(idleTask(t)))
	assert.ErrorIs(t, pool.Submit(idleTask(t)), ErrPoolSaturated)
}

func TestPoolRunsTasks(t *testing.T) {
	pool := NewPool(2, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	ran := make(chan string, 4)
	for i := 0; i < 4; i++ {
		task := idleTask(t)
		id := task.DepositID
		task.onComplete = nil
		// A policy miss never calls onComplete, so observe execution
		// through Admit itself.
		task.Admit = func(d *types.Deposit) bool {
			ran <- id
			return false
		}
		require.NoError(t, pool.Submit(task))
	}

	for i := 0; i < 4; i++ {
		select {
		case <-ran:
		case <-time.After(2 * time.Second):
			t.Fatalf("task %d never ran", i)
		}
	}
	pool.Drain(time.Second)
}

func TestPoolClosedAfterDrain(t *testing.T) {
	pool := NewPool(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	pool.Drain(time.Second)
	assert.ErrorIs(t, pool.Submit(idleTask(t)), ErrPoolClosed)

	// A second drain is a no-op.
	pool.Drain(time.Second)
}

func TestDefaultAdmitIsNewDepositPolicy(t *testing.T) {
	client := repository.NewInMemClient()
	task := NewTask(TaskDeps{Engine: cse.New(client), Client: client},
		"mem://deposits/1", &types.DepositSubmission{}, testPackager(nil, nil))

	assert.True(t, task.Admit(&types.Deposit{}))
	assert.False(t, task.Admit(&types.Deposit{Status: types.DepositStatusFailed}),
		"fresh tasks admit only dirty deposits")
	assert.True(t, policy.RetryableDeposit(&types.Deposit{Status: types.DepositStatusFailed}))
}
