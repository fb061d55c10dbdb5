package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRoundTrip(t *testing.T) {
	j := openTestJournal(t)

	rec, err := j.Dispatched("mem://submissions/1", "mem://repositories/js")
	require.NoError(t, err)
	assert.Nil(t, rec, "nothing recorded yet")

	require.NoError(t, j.MarkDispatched("mem://submissions/1", "mem://repositories/js", "mem://deposits/1"))

	rec, err = j.Dispatched("mem://submissions/1", "mem://repositories/js")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "mem://deposits/1", rec.Deposit)
	assert.False(t, rec.Dispatched.IsZero())

	// A different target is a different fingerprint.
	rec, err = j.Dispatched("mem://submissions/1", "mem://repositories/other")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestJournalForget(t *testing.T) {
	j := openTestJournal(t)

	require.NoError(t, j.MarkDispatched("mem://submissions/1", "mem://repositories/js", "mem://deposits/1"))
	require.NoError(t, j.Forget("mem://submissions/1", "mem://repositories/js"))

	rec, err := j.Dispatched("mem://submissions/1", "mem://repositories/js")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFingerprintDistinguishesPairs(t *testing.T) {
	assert.NotEqual(t,
		Fingerprint("a", "b/c"),
		Fingerprint("a/b", "c"),
		"the separator must keep adjacent fields apart")
}
