package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTerminality(t *testing.T) {
	aggregated := map[AggregatedStatus]bool{
		AggregatedStatusNone:       false,
		AggregatedStatusNotStarted: false,
		AggregatedStatusInProgress: false,
		AggregatedStatusFailed:     false,
		AggregatedStatusAccepted:   true,
		AggregatedStatusRejected:   true,
	}
	for status, terminal := range aggregated {
		assert.Equal(t, terminal, status.Terminal(), "aggregated %q", status)
	}

	deposit := map[DepositStatus]bool{
		DepositStatusDirty:     false,
		DepositStatusSubmitted: false,
		DepositStatusFailed:    false,
		DepositStatusAccepted:  true,
		DepositStatusRejected:  true,
	}
	for status, terminal := range deposit {
		assert.Equal(t, terminal, status.Terminal(), "deposit %q", status)
	}

	copies := map[CopyStatus]bool{
		CopyStatusInProgress: false,
		CopyStatusComplete:   true,
		CopyStatusRejected:   true,
	}
	for status, terminal := range copies {
		assert.Equal(t, terminal, status.Terminal(), "copy %q", status)
	}
}

func TestMarkFailedIsIntermediate(t *testing.T) {
	s := &Submission{AggregatedStatus: AggregatedStatusInProgress}
	s.MarkFailed()
	assert.Equal(t, AggregatedStatusFailed, s.AggregatedStatus)
	assert.False(t, s.Terminal(), "failed submissions remain retryable")

	d := &Deposit{Status: DepositStatusSubmitted}
	d.MarkFailed()
	assert.Equal(t, DepositStatusFailed, d.Status)
	assert.False(t, d.Terminal(), "failed deposits remain retryable")
}

func TestDepositJSONOmitsDirtyStatus(t *testing.T) {
	d := &Deposit{
		ID:         "http://upstream/deposits/1",
		Submission: "http://upstream/submissions/1",
		Repository: "http://upstream/repositories/js",
	}

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "depositStatus", "dirty deposits carry no status on the wire")
	assert.NotContains(t, fields, "ETag", "the concurrency tag never serializes")
	assert.Equal(t, "http://upstream/deposits/1", fields["@id"])
}

func TestEntityTagRoundTrip(t *testing.T) {
	entities := []Entity{
		&Submission{ID: "s"},
		&Deposit{ID: "d"},
		&RepositoryCopy{ID: "rc"},
		&Repository{ID: "r"},
		&File{ID: "f"},
	}
	for _, e := range entities {
		assert.Empty(t, e.Tag(), "%s starts untagged", e.EntityType())
		e.SetTag(`"v7"`)
		assert.Equal(t, `"v7"`, e.Tag())
	}
}
