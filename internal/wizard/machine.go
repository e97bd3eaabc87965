package wizard

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tolarian/deckforge/internal/model"
)

// DefaultSnapshotKey is the persistence key a single-user CLI wizard uses.
const DefaultSnapshotKey = "deckforge.wizard"

// SessionStore is the narrow persistence port the machine writes snapshots
// through. A missing or corrupt snapshot loads as (nil, nil), never an
// error; persistence failures are recoverable warnings, not fatal.
type SessionStore interface {
	LoadSession(ctx context.Context, key string) (*model.WizardSession, error)
	SaveSession(ctx context.Context, key string, s *model.WizardSession) error
	ClearSession(ctx context.Context, key string) error
}

// Machine sequences the consultation steps over one wizard session. It owns
// the session exclusively: the record is mutated only through SetStep,
// UpdateData, NextStep/PreviousStep, Reset and Complete.
type Machine struct {
	steps   []Step
	store   SessionStore
	key     string
	session *model.WizardSession
}

// NewMachine restores the session persisted under key, or starts fresh if
// no usable snapshot exists.
func NewMachine(ctx context.Context, store SessionStore, key string) *Machine {
	if key == "" {
		key = DefaultSnapshotKey
	}
	m := &Machine{steps: Steps(), store: store, key: key}

	snap, err := store.LoadSession(ctx, key)
	if err != nil {
		zap.L().Warn("wizard: snapshot load failed, starting fresh", zap.Error(err))
	}
	if snap != nil && snap.Version == model.SnapshotVersion && !snap.IsComplete {
		m.session = snap
	} else {
		m.session = model.NewSession()
	}
	return m
}

// Session returns a copy of the current session state.
func (m *Machine) Session() model.WizardSession {
	s := *m.session
	s.Record = m.session.Record.Clone()
	return s
}

// Record returns a copy of the accumulated consultation record.
func (m *Machine) Record() model.ConsultationRecord {
	return m.session.Record.Clone()
}

// CurrentStep returns the current step definition.
func (m *Machine) CurrentStep() Step {
	return m.steps[m.session.CurrentStepIndex]
}

// Verdict validates the record against the current step's rules.
func (m *Machine) Verdict() Verdict {
	return m.CurrentStep().Validate(m.session.Record)
}

// SetStep jumps directly to the given step without validation; this is
// what "edit" links from the summary use. Indices outside [0, StepCount)
// are a no-op.
func (m *Machine) SetStep(ctx context.Context, index int) {
	if index < 0 || index >= len(m.steps) {
		return
	}
	m.session.CurrentStepIndex = index
	m.persist(ctx)
}

// UpdateData shallow-merges the patch into the record. It always succeeds;
// out-of-range values are dropped with a warning and the snapshot is
// persisted.
func (m *Machine) UpdateData(ctx context.Context, p model.Patch) {
	dropped := p.ApplyTo(&m.session.Record)
	for _, f := range dropped {
		zap.L().Warn("wizard: dropped out-of-range field from update", zap.String("field", f))
	}
	m.persist(ctx)
}

// NextStep advances one step if the current step's validator passes,
// chain-skipping any steps whose skip predicate fires. Advancing past the
// last step completes the wizard. Returns true if the machine moved (or
// completed).
func (m *Machine) NextStep(ctx context.Context) bool {
	if m.session.IsComplete {
		return false
	}
	if v := m.Verdict(); !v.IsValid {
		return false
	}
	next := m.session.CurrentStepIndex + 1

	// Skip-chaining: bounded by the step count, so a mis-written predicate
	// can at worst walk off the end and complete the wizard.
	for hops := 0; next < len(m.steps) && hops < len(m.steps); hops++ {
		if m.steps[next].Skip == nil || !m.steps[next].Skip(m.session.Record) {
			break
		}
		next++
	}

	if next >= len(m.steps) {
		_, err := m.Complete(ctx)
		return err == nil
	}
	m.session.CurrentStepIndex = next
	m.persist(ctx)
	return true
}

// PreviousStep moves back one step, floored at 0. Going backward never
// requires validation.
func (m *Machine) PreviousStep(ctx context.Context) {
	if m.session.CurrentStepIndex == 0 {
		return
	}
	m.session.CurrentStepIndex--
	m.persist(ctx)
}

// Reset reinitializes the record to defaults, issues a new session ID and
// clears the persisted snapshot.
func (m *Machine) Reset(ctx context.Context) {
	m.session = model.NewSession()
	if err := m.store.ClearSession(ctx, m.key); err != nil {
		zap.L().Warn("wizard: snapshot clear failed", zap.Error(err))
	}
}

// Complete finalizes the wizard: the summary validator is the authoritative
// gate, independent of which steps were actually visited. On success the
// snapshot is cleared and the final record returned.
func (m *Machine) Complete(ctx context.Context) (model.ConsultationRecord, error) {
	if v := validateSummary(m.session.Record); !v.IsValid {
		return model.ConsultationRecord{}, eris.Errorf("wizard: consultation incomplete: %v", v.Errors)
	}
	m.session.IsComplete = true
	m.session.CurrentStepIndex = StepSummary
	if err := m.store.ClearSession(ctx, m.key); err != nil {
		zap.L().Warn("wizard: snapshot clear failed", zap.Error(err))
	}
	return m.session.Record.Clone(), nil
}

// IsComplete reports whether the wizard reached its terminal state.
func (m *Machine) IsComplete() bool {
	return m.session.IsComplete
}

// persist writes the full session snapshot. Failures are warnings: the
// wizard keeps operating in memory.
func (m *Machine) persist(ctx context.Context) {
	m.session.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveSession(ctx, m.key, m.session); err != nil {
		zap.L().Warn("wizard: snapshot save failed", zap.Error(err))
	}
}
