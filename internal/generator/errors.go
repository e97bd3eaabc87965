package generator

import (
	"errors"

	"github.com/rotisserie/eris"

	"github.com/tolarian/deckforge/internal/resilience"
)

// ErrAttemptInFlight is returned when Generate is called while another
// attempt is running on the same orchestrator. Concurrent calls are
// rejected, not queued.
var ErrAttemptInFlight = eris.New("generator: generation attempt already in flight")

// ErrCancelled marks a deliberately cancelled attempt. It is a terminal
// state distinct from failure and surfaces no user-facing error.
var ErrCancelled = eris.New("generator: generation cancelled")

// AssemblyError reports malformed generation output. Assembly errors are
// never retried automatically; the retry affordance re-runs the whole
// attempt from the first phase.
type AssemblyError struct {
	Reason string
}

func (e *AssemblyError) Error() string {
	return "generator: assemble: " + e.Reason
}

// ErrorKind classifies a terminal generation error for the caller.
type ErrorKind string

const (
	ErrorKindTransient ErrorKind = "transient"
	ErrorKindAssembly  ErrorKind = "assembly"
	ErrorKindCancelled ErrorKind = "cancelled"
	ErrorKindOther     ErrorKind = "other"
)

// Classify maps an error from Generate onto the error taxonomy.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return ErrorKindCancelled
	case isAssemblyError(err):
		return ErrorKindAssembly
	case resilience.IsTransient(err):
		return ErrorKindTransient
	default:
		return ErrorKindOther
	}
}

func isAssemblyError(err error) bool {
	var ae *AssemblyError
	return errors.As(err, &ae)
}
