package wizard

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolarian/deckforge/internal/model"
)

// memStore is the in-memory SessionStore fake used across machine tests.
type memStore struct {
	sessions map[string]*model.WizardSession
	saves    int
	failing  bool
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*model.WizardSession)}
}

func (s *memStore) LoadSession(_ context.Context, key string) (*model.WizardSession, error) {
	if s.failing {
		return nil, eris.New("store down")
	}
	snap, ok := s.sessions[key]
	if !ok {
		return nil, nil
	}
	cp := *snap
	return &cp, nil
}

func (s *memStore) SaveSession(_ context.Context, key string, sess *model.WizardSession) error {
	if s.failing {
		return eris.New("store down")
	}
	s.saves++
	cp := *sess
	s.sessions[key] = &cp
	return nil
}

func (s *memStore) ClearSession(_ context.Context, key string) error {
	if s.failing {
		return eris.New("store down")
	}
	delete(s.sessions, key)
	return nil
}

func newTestMachine(t *testing.T) (*Machine, *memStore) {
	t.Helper()
	st := newMemStore()
	return NewMachine(context.Background(), st, ""), st
}

func TestMachine_StartsFresh(t *testing.T) {
	m, _ := newTestMachine(t)
	s := m.Session()
	assert.Equal(t, 0, s.CurrentStepIndex)
	assert.False(t, s.IsComplete)
	assert.NotEmpty(t, s.SessionID)
	assert.Equal(t, model.DefaultRecord(), s.Record)
}

func TestMachine_NextStepBlockedByValidator(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)
	require.False(t, m.NextStep(ctx), "empty commander step must not advance")
	assert.Equal(t, StepCommander, m.Session().CurrentStepIndex)
}

func TestMachine_SkipChainsPastSuggestions(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)
	m.UpdateData(ctx, model.Patch{Commander: strPtr("Atraxa, Praetors' Voice")})
	require.True(t, m.NextStep(ctx))
	// A named commander skips the suggestions step entirely.
	assert.Equal(t, StepStrategy, m.Session().CurrentStepIndex)
}

func TestMachine_SuggestionsStepShownWhenRequested(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)
	m.UpdateData(ctx, model.Patch{NeedsCommanderSuggestions: boolPtr(true)})
	require.True(t, m.NextStep(ctx))
	assert.Equal(t, StepSuggestions, m.Session().CurrentStepIndex)
	// Stuck until a commander is picked.
	require.False(t, m.NextStep(ctx))
	m.UpdateData(ctx, model.Patch{Commander: strPtr("Meren of Clan Nel Toth")})
	require.True(t, m.NextStep(ctx))
	assert.Equal(t, StepStrategy, m.Session().CurrentStepIndex)
}

func TestMachine_SkipChainingTerminates(t *testing.T) {
	// Property check on the step table itself: no skip predicate may be
	// tautologically true, for the empty record or a full one.
	for _, r := range []model.ConsultationRecord{model.DefaultRecord(), fullWalkRecord()} {
		skipped := 0
		for _, step := range Steps() {
			if step.Skip != nil && step.Skip(r) {
				skipped++
			}
		}
		assert.Less(t, skipped, StepCount(), "at least one step must be reachable")
	}
}

func fullWalkRecord() model.ConsultationRecord {
	b := 300.0
	p := 3
	return model.ConsultationRecord{
		Commander:       "Atraxa, Praetors' Voice",
		Strategy:        "value",
		Budget:          &b,
		PowerLevel:      &p,
		WinConditions:   &model.WinConditions{Primary: model.WinConditionCombat, CombatStyle: "voltron"},
		Interaction:     &model.Interaction{Level: model.InteractionMedium, Types: []string{"removal"}, Timing: "balanced"},
		ComplexityLevel: "moderate",
	}
}

func TestMachine_FullWalkCompletes(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	m := NewMachine(ctx, st, "")

	r := fullWalkRecord()
	m.UpdateData(ctx, model.Patch{
		Commander:       &r.Commander,
		Strategy:        &r.Strategy,
		Budget:          r.Budget,
		PowerLevel:      r.PowerLevel,
		WinConditions:   r.WinConditions,
		Interaction:     r.Interaction,
		ComplexityLevel: &r.ComplexityLevel,
	})

	for i := 0; i < StepCount(); i++ {
		if m.IsComplete() {
			break
		}
		require.True(t, m.NextStep(ctx), "step %d should advance", m.Session().CurrentStepIndex)
	}
	assert.True(t, m.IsComplete())
	// Completion clears the persisted snapshot.
	assert.Empty(t, st.sessions)
}

func TestMachine_SetStepClampsAndSkipsValidation(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)
	m.SetStep(ctx, StepSummary)
	assert.Equal(t, StepSummary, m.Session().CurrentStepIndex, "edit jump needs no validation")
	m.SetStep(ctx, -1)
	assert.Equal(t, StepSummary, m.Session().CurrentStepIndex)
	m.SetStep(ctx, StepCount())
	assert.Equal(t, StepSummary, m.Session().CurrentStepIndex)
}

func TestMachine_PreviousStepFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)
	m.PreviousStep(ctx)
	assert.Equal(t, 0, m.Session().CurrentStepIndex)
	m.SetStep(ctx, StepBudget)
	m.PreviousStep(ctx)
	assert.Equal(t, StepStrategy, m.Session().CurrentStepIndex)
}

func TestMachine_ResetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, st := newTestMachine(t)
	first := m.Session().SessionID

	m.UpdateData(ctx, model.Patch{Commander: strPtr("Krenko, Mob Boss"), Strategy: strPtr("aggro")})
	m.SetStep(ctx, StepStrategy)
	m.Reset(ctx)

	s := m.Session()
	assert.Equal(t, model.DefaultRecord(), s.Record)
	assert.Equal(t, 0, s.CurrentStepIndex)
	assert.NotEqual(t, first, s.SessionID, "reset issues a new session id")
	assert.Empty(t, st.sessions, "reset clears the snapshot")

	m.UpdateData(ctx, model.Patch{Commander: strPtr("Krenko, Mob Boss")})
	m.Reset(ctx)
	assert.Equal(t, model.DefaultRecord(), m.Session().Record)
}

func TestMachine_UpdateDataDropsOutOfRangeValues(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)
	bad := -5.0
	lvl := 9
	m.UpdateData(ctx, model.Patch{Budget: &bad, PowerLevel: &lvl})
	r := m.Record()
	assert.Nil(t, r.Budget)
	assert.Nil(t, r.PowerLevel)
}

func TestMachine_PersistsOnMutations(t *testing.T) {
	ctx := context.Background()
	m, st := newTestMachine(t)
	m.UpdateData(ctx, model.Patch{Commander: strPtr("Atraxa, Praetors' Voice")})
	m.SetStep(ctx, StepStrategy)
	assert.GreaterOrEqual(t, st.saves, 2)

	snap := st.sessions[DefaultSnapshotKey]
	require.NotNil(t, snap)
	assert.Equal(t, StepStrategy, snap.CurrentStepIndex)
	assert.Equal(t, "Atraxa, Praetors' Voice", snap.Record.Commander)
}

func TestMachine_RestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	m := NewMachine(ctx, st, "")
	m.UpdateData(ctx, model.Patch{Commander: strPtr("Atraxa, Praetors' Voice")})
	m.SetStep(ctx, StepBudget)
	id := m.Session().SessionID

	restored := NewMachine(ctx, st, "")
	s := restored.Session()
	assert.Equal(t, id, s.SessionID)
	assert.Equal(t, StepBudget, s.CurrentStepIndex)
	assert.Equal(t, "Atraxa, Praetors' Voice", s.Record.Commander)
}

func TestMachine_FailingStoreKeepsWizardOperating(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.failing = true
	m := NewMachine(ctx, st, "")
	m.UpdateData(ctx, model.Patch{Commander: strPtr("Atraxa, Praetors' Voice")})
	// Persistence failures are warnings; in-memory state still advances.
	require.True(t, m.NextStep(ctx))
	assert.Equal(t, StepStrategy, m.Session().CurrentStepIndex)
}

func TestMachine_CompleteRequiresSummaryGate(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)
	// Edit-jump straight to the summary: the gate still catches the
	// missing fields.
	m.SetStep(ctx, StepSummary)
	_, err := m.Complete(ctx)
	require.Error(t, err)
	assert.False(t, m.IsComplete())
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
