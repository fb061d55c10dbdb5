package policy

import (
	"github.com/carrel-io/ferry/pkg/types"
)

// AcceptSubmission decides whether a submission is admissible for
// processing: it must be submitted by a user, and either untouched or
// recovering from a failure.
func AcceptSubmission(s *types.Submission) bool {
	if s == nil || !s.Submitted {
		return false
	}
	if s.Source != types.SourceUser {
		return false
	}
	switch s.AggregatedStatus {
	case types.AggregatedStatusNone, types.AggregatedStatusNotStarted, types.AggregatedStatusFailed:
		return true
	}
	return false
}

// AcceptNewDeposit admits only freshly created (dirty) deposits for a
// first transfer attempt
func AcceptNewDeposit(d *types.Deposit) bool {
	return d != nil && d.Status == types.DepositStatusDirty
}

// RetryableDeposit admits deposits the retry driver may re-enqueue:
// failed ones and dirty ones that never got off the ground
func RetryableDeposit(d *types.Deposit) bool {
	if d == nil {
		return false
	}
	return d.Status == types.DepositStatusFailed || d.Status == types.DepositStatusDirty
}

// RefreshableDeposit admits deposits whose asynchronous outcome may be
// polled: intermediate, with a status reference to resolve
func RefreshableDeposit(d *types.Deposit) bool {
	if d == nil || d.Terminal() {
		return false
	}
	return d.StatusRef != ""
}
