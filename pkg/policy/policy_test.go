package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carrel-io/ferry/pkg/types"
)

func TestAcceptSubmission(t *testing.T) {
	tests := []struct {
		name       string
		submission *types.Submission
		want       bool
	}{
		{
			name: "submitted user submission not started",
			submission: &types.Submission{
				Submitted: true, Source: types.SourceUser,
				AggregatedStatus: types.AggregatedStatusNotStarted,
			},
			want: true,
		},
		{
			name: "zero-value status reads as not started",
			submission: &types.Submission{
				Submitted: true, Source: types.SourceUser,
			},
			want: true,
		},
		{
			name: "failed submission is re-admissible",
			submission: &types.Submission{
				Submitted: true, Source: types.SourceUser,
				AggregatedStatus: types.AggregatedStatusFailed,
			},
			want: true,
		},
		{
			name: "not yet submitted",
			submission: &types.Submission{
				Submitted: false, Source: types.SourceUser,
				AggregatedStatus: types.AggregatedStatusNotStarted,
			},
			want: false,
		},
		{
			name: "harvested source",
			submission: &types.Submission{
				Submitted: true, Source: types.SourceOther,
				AggregatedStatus: types.AggregatedStatusNotStarted,
			},
			want: false,
		},
		{
			name: "already in progress",
			submission: &types.Submission{
				Submitted: true, Source: types.SourceUser,
				AggregatedStatus: types.AggregatedStatusInProgress,
			},
			want: false,
		},
		{
			name: "terminal accepted",
			submission: &types.Submission{
				Submitted: true, Source: types.SourceUser,
				AggregatedStatus: types.AggregatedStatusAccepted,
			},
			want: false,
		},
		{
			name:       "nil submission",
			submission: nil,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AcceptSubmission(tt.submission))
		})
	}
}

func TestAcceptNewDeposit(t *testing.T) {
	assert.True(t, AcceptNewDeposit(&types.Deposit{}))
	assert.False(t, AcceptNewDeposit(&types.Deposit{Status: types.DepositStatusSubmitted}))
	assert.False(t, AcceptNewDeposit(&types.Deposit{Status: types.DepositStatusFailed}))
	assert.False(t, AcceptNewDeposit(nil))
}

func TestRetryableDeposit(t *testing.T) {
	assert.True(t, RetryableDeposit(&types.Deposit{Status: types.DepositStatusFailed}))
	assert.True(t, RetryableDeposit(&types.Deposit{}), "a dirty deposit never got off the ground")
	assert.False(t, RetryableDeposit(&types.Deposit{Status: types.DepositStatusSubmitted}))
	assert.False(t, RetryableDeposit(&types.Deposit{Status: types.DepositStatusAccepted}))
	assert.False(t, RetryableDeposit(nil))
}

func TestRefreshableDeposit(t *testing.T) {
	assert.True(t, RefreshableDeposit(&types.Deposit{
		Status: types.DepositStatusSubmitted, StatusRef: "http://target/status/1",
	}))
	assert.False(t, RefreshableDeposit(&types.Deposit{Status: types.DepositStatusSubmitted}),
		"nothing to poll without a status reference")
	assert.False(t, RefreshableDeposit(&types.Deposit{
		Status: types.DepositStatusAccepted, StatusRef: "http://target/status/1",
	}))
	assert.False(t, RefreshableDeposit(nil))
}
