package faults

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrel-io/ferry/pkg/cse"
	"github.com/carrel-io/ferry/pkg/repository"
	"github.com/carrel-io/ferry/pkg/types"
)

func newHandlerFixture(t *testing.T) (*Handler, *repository.InMemClient) {
	t.Helper()
	client := repository.NewInMemClient()
	return NewHandler(cse.New(client)), client
}

func TestHandleErrorMarksDepositFailed(t *testing.T) {
	h, client := newHandlerFixture(t)
	client.Put(&types.Deposit{ID: "mem://deposits/1", Status: types.DepositStatusSubmitted})

	h.HandleError(context.Background(), ForDeposit("mem://deposits/1", errors.New("transport exploded")))

	e, err := client.Read(context.Background(), "mem://deposits/1", types.EntityTypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, types.DepositStatusFailed, e.(*types.Deposit).Status)
}

func TestHandleErrorMarksSubmissionFailed(t *testing.T) {
	h, client := newHandlerFixture(t)
	client.Put(&types.Submission{ID: "mem://submissions/1", AggregatedStatus: types.AggregatedStatusInProgress})

	h.HandleError(context.Background(), ForSubmission("mem://submissions/1", errors.New("manifest empty")))

	e, err := client.Read(context.Background(), "mem://submissions/1", types.EntityTypeSubmission)
	require.NoError(t, err)
	assert.Equal(t, types.AggregatedStatusFailed, e.(*types.Submission).AggregatedStatus)
}

func TestHandleErrorLeavesTerminalEntityAlone(t *testing.T) {
	h, client := newHandlerFixture(t)
	client.Put(&types.Deposit{ID: "mem://deposits/1", Status: types.DepositStatusAccepted})

	h.HandleError(context.Background(), ForDeposit("mem://deposits/1", errors.New("late failure")))

	e, err := client.Read(context.Background(), "mem://deposits/1", types.EntityTypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, types.DepositStatusAccepted, e.(*types.Deposit).Status,
		"a terminal deposit is never demoted to failed")
}

func TestHandleErrorRemedialMutatesNothing(t *testing.T) {
	h, client := newHandlerFixture(t)
	client.Put(&types.Deposit{ID: "mem://deposits/1", Status: types.DepositStatusSubmitted})

	h.HandleError(context.Background(), &EntityError{
		EntityID:   "mem://deposits/1",
		EntityType: types.EntityTypeDeposit,
		Remedial:   true,
		Err:        errors.New("credentials revoked"),
	})

	e, err := client.Read(context.Background(), "mem://deposits/1", types.EntityTypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, types.DepositStatusSubmitted, e.(*types.Deposit).Status,
		"remedial failures require human intervention, not state mutation")
}

func TestHandleErrorUnscopedAndNil(t *testing.T) {
	h, _ := newHandlerFixture(t)

	// Neither may panic or mutate anything.
	h.HandleError(context.Background(), errors.New("unscoped"))
	h.HandleError(context.Background(), nil)
}

func TestEntityErrorChain(t *testing.T) {
	cause := errors.New("root cause")
	ee := ForDeposit("mem://deposits/1", cause)

	assert.ErrorIs(t, ee, cause)

	got, ok := AsEntityError(ee)
	require.True(t, ok)
	assert.Equal(t, "mem://deposits/1", got.EntityID)

	wrapped := &EntityError{EntityID: "x", EntityType: types.EntityTypeDeposit, Remedial: true, Err: cause}
	assert.True(t, IsRemedial(wrapped))
	assert.False(t, IsRemedial(cause))
}
