package generator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition_StartOnlyFromIdle(t *testing.T) {
	a := transition(Attempt{}, evStart{})
	assert.Equal(t, StatusRunning, a.Status)

	// Starting a running attempt changes nothing.
	same := transition(a, evStart{})
	assert.Equal(t, a, same)
}

func TestTransition_PhaseProgressIsMonotonic(t *testing.T) {
	a := transition(Attempt{}, evStart{})
	a = transition(a, evPhase{index: 2})
	assert.Equal(t, 2, a.PhaseIndex)

	// A stale lower phase never regresses the attempt.
	a = transition(a, evPhase{index: 1})
	assert.Equal(t, 2, a.PhaseIndex)
}

func TestTransition_DuplicateSuccessIgnored(t *testing.T) {
	a := transition(Attempt{}, evStart{})
	a = transition(a, evDeliverSuccess{})
	assert.Equal(t, StatusSucceeded, a.Status)
	assert.True(t, a.HasSucceeded)

	dup := transition(a, evDeliverSuccess{})
	assert.Equal(t, a, dup, "second success signal must be a no-op")
}

func TestTransition_FailureClearsSucceededGuard(t *testing.T) {
	a := transition(Attempt{}, evStart{})
	a = transition(a, evDeliverFailure{err: errors.New("boom")})
	assert.Equal(t, StatusFailed, a.Status)
	assert.False(t, a.HasSucceeded)
	assert.EqualError(t, a.LastErr, "boom")
}

func TestTransition_RetryResetsPhaseState(t *testing.T) {
	a := transition(Attempt{}, evStart{})
	a = transition(a, evPhase{index: 3})
	a = transition(a, evDeliverFailure{err: errors.New("flaky")})
	a = transition(a, evScheduleRetry{})

	assert.Equal(t, StatusRunning, a.Status)
	assert.Equal(t, 0, a.PhaseIndex, "retry re-enters phase 1")
	assert.Equal(t, 1, a.RetryCount)
	assert.False(t, a.HasSucceeded)
}

func TestTransition_CancelAbsorbsEverythingButSuccess(t *testing.T) {
	a := transition(Attempt{}, evStart{})
	a = transition(a, evCancel{})
	assert.Equal(t, StatusCancelled, a.Status)

	// Nothing mutates a cancelled attempt.
	for _, ev := range []event{evStart{}, evPhase{index: 4}, evDeliverSuccess{}, evDeliverFailure{err: errors.New("late")}, evScheduleRetry{}} {
		assert.Equal(t, a, transition(a, ev))
	}

	// A succeeded attempt cannot be cancelled retroactively.
	s := transition(transition(Attempt{}, evStart{}), evDeliverSuccess{})
	assert.Equal(t, s, transition(s, evCancel{}))
}
