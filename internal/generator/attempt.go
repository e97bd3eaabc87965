package generator

// Status is the lifecycle state of one generation attempt.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Attempt is the state of one generation attempt, including its retries.
// It is owned exclusively by one Orchestrator and evolved only through
// transition, which makes idempotency and cancellation explicit instead of
// incidental.
type Attempt struct {
	Status       Status
	PhaseIndex   int
	RetryCount   int
	HasSucceeded bool
	LastErr      error
}

// event is a state-machine input for the attempt reducer.
type event interface{ isEvent() }

type evStart struct{}
type evPhase struct{ index int }
type evDeliverSuccess struct{}
type evDeliverFailure struct{ err error }
type evScheduleRetry struct{}
type evCancel struct{}

func (evStart) isEvent()          {}
func (evPhase) isEvent()          {}
func (evDeliverSuccess) isEvent() {}
func (evDeliverFailure) isEvent() {}
func (evScheduleRetry) isEvent()  {}
func (evCancel) isEvent()         {}

// transition is the pure attempt reducer. Unhandled (state, event) pairs
// return the attempt unchanged, which is exactly the idempotency guarantee:
// a duplicate success signal on a Succeeded attempt is a no-op, and nothing
// mutates a Cancelled attempt.
func transition(a Attempt, ev event) Attempt {
	switch ev := ev.(type) {
	case evStart:
		if a.Status == StatusIdle {
			return Attempt{Status: StatusRunning}
		}
	case evPhase:
		// Progress is monotonic within an attempt.
		if a.Status == StatusRunning && ev.index > a.PhaseIndex {
			a.PhaseIndex = ev.index
			return a
		}
	case evDeliverSuccess:
		if a.Status == StatusRunning && !a.HasSucceeded {
			a.Status = StatusSucceeded
			a.HasSucceeded = true
			a.LastErr = nil
			return a
		}
	case evDeliverFailure:
		if a.Status == StatusRunning {
			a.Status = StatusFailed
			// Terminal failures clear the succeeded guard so a manual
			// retry is possible.
			a.HasSucceeded = false
			a.LastErr = ev.err
			return a
		}
	case evScheduleRetry:
		if a.Status == StatusFailed {
			return Attempt{
				Status:     StatusRunning,
				RetryCount: a.RetryCount + 1,
				LastErr:    a.LastErr,
			}
		}
	case evCancel:
		if a.Status != StatusSucceeded && a.Status != StatusCancelled {
			a.Status = StatusCancelled
			return a
		}
	}
	return a
}
