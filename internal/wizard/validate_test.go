package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolarian/deckforge/internal/model"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

// completeRecord mirrors a consultation that should sail through the
// summary gate.
func completeRecord() model.ConsultationRecord {
	return model.ConsultationRecord{
		Commander:  "Atraxa, Praetors' Voice",
		Strategy:   "value",
		Budget:     floatPtr(300),
		PowerLevel: intPtr(3),
		WinConditions: &model.WinConditions{
			Primary:     model.WinConditionCombat,
			CombatStyle: "voltron",
		},
		Interaction: &model.Interaction{
			Level:  model.InteractionMedium,
			Types:  []string{"removal"},
			Timing: "balanced",
		},
		ComplexityLevel: "moderate",
	}
}

func TestValidators_TotalOnEmptyRecord(t *testing.T) {
	empty := model.DefaultRecord()
	for _, step := range Steps() {
		v := step.Validate(empty)
		// A verdict is well-formed when validity agrees with the error list.
		assert.Equal(t, len(v.Errors) == 0, v.IsValid, "step %d (%s)", step.Index, step.Title)
	}
}

func TestValidators_TotalWithEachFieldOmitted(t *testing.T) {
	mutations := map[string]func(*model.ConsultationRecord){
		"commander":   func(r *model.ConsultationRecord) { r.Commander = "" },
		"strategy":    func(r *model.ConsultationRecord) { r.Strategy = "" },
		"budget":      func(r *model.ConsultationRecord) { r.Budget = nil },
		"power":       func(r *model.ConsultationRecord) { r.PowerLevel = nil },
		"wincons":     func(r *model.ConsultationRecord) { r.WinConditions = nil },
		"interaction": func(r *model.ConsultationRecord) { r.Interaction = nil },
		"complexity":  func(r *model.ConsultationRecord) { r.ComplexityLevel = "" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			r := completeRecord()
			mutate(&r)
			for _, step := range Steps() {
				v := step.Validate(r)
				assert.Equal(t, len(v.Errors) == 0, v.IsValid, "step %d", step.Index)
			}
		})
	}
}

func TestSummary_CompleteRecordPasses(t *testing.T) {
	v := validateSummary(completeRecord())
	require.True(t, v.IsValid)
	assert.Empty(t, v.Errors)
}

func TestSummary_EmptyRecordReportsMissingFields(t *testing.T) {
	v := validateSummary(model.DefaultRecord())
	require.False(t, v.IsValid)
	assert.GreaterOrEqual(t, len(v.Errors), 4)
	assert.Contains(t, v.Errors, "commander is missing")
	assert.Contains(t, v.Errors, "strategy is missing")
	assert.Contains(t, v.Errors, "win condition is missing")
	assert.Contains(t, v.Errors, "interaction preferences are missing")
}

func TestWinConditions_SubstyleWarnings(t *testing.T) {
	r := completeRecord()
	r.WinConditions = &model.WinConditions{Primary: model.WinConditionCombat}
	v := validateWinConditions(r)
	assert.True(t, v.IsValid, "missing substyle is advisory, not blocking")
	assert.Len(t, v.Warnings, 1)

	r.WinConditions = &model.WinConditions{Primary: model.WinConditionCombo}
	v = validateWinConditions(r)
	assert.True(t, v.IsValid)
	assert.Len(t, v.Warnings, 1)

	r.WinConditions = &model.WinConditions{
		Primary:     model.WinConditionCombat,
		CombatStyle: "go_wide",
		Secondary:   []string{"a", "b", "c", "d"},
	}
	v = validateWinConditions(r)
	assert.True(t, v.IsValid)
	assert.Len(t, v.Warnings, 1)
}

func TestPowerLevel_BudgetHeuristicsAreAdvisory(t *testing.T) {
	r := completeRecord()
	r.PowerLevel = intPtr(4)
	r.Budget = floatPtr(200)
	v := validatePowerLevel(r)
	assert.True(t, v.IsValid)
	assert.NotEmpty(t, v.Warnings)

	r.PowerLevel = intPtr(1)
	r.Budget = floatPtr(2000)
	v = validatePowerLevel(r)
	assert.True(t, v.IsValid)
	assert.NotEmpty(t, v.Warnings)

	r.PowerLevel = intPtr(3)
	r.Budget = floatPtr(300)
	v = validatePowerLevel(r)
	assert.True(t, v.IsValid)
	assert.Empty(t, v.Warnings)
}

func TestRestrictions_AlwaysValid(t *testing.T) {
	r := completeRecord()
	big := make([]string, 25)
	for i := range big {
		big[i] = "card"
	}
	r.Restrictions = &model.Restrictions{
		AvoidStrategies: []string{"Value", "stax", "combo", "tribal", "aggro", "control"},
		AvoidCards:      big,
	}
	v := validateRestrictions(r)
	assert.True(t, v.IsValid, "restrictions never block progression")
	// Overlap with chosen strategy + both list thresholds exceeded.
	assert.Len(t, v.Warnings, 3)

	r.Restrictions = nil
	v = validateRestrictions(r)
	assert.True(t, v.IsValid)
	assert.Empty(t, v.Warnings)
}

func TestValidateAllSteps_AggregatesAndHonorsSkips(t *testing.T) {
	r := model.DefaultRecord()
	r.NeedsCommanderSuggestions = true
	v := ValidateAllSteps(StepSummary, r)
	require.False(t, v.IsValid)
	// The suggestions step is NOT skipped (suggestions requested, no
	// commander picked), so its error is included.
	assert.Contains(t, v.Errors, "pick a commander from the suggestions")

	full := completeRecord()
	v = ValidateAllSteps(StepSummary, full)
	assert.True(t, v.IsValid)
}

func TestValidateStep_OutOfRangeIsValid(t *testing.T) {
	assert.True(t, ValidateStep(-1, model.DefaultRecord()).IsValid)
	assert.True(t, ValidateStep(99, model.DefaultRecord()).IsValid)
}
