package wizard

import "github.com/tolarian/deckforge/internal/model"

// Step indices. The order is fixed at construction and never mutated at
// runtime.
const (
	StepCommander = iota
	StepSuggestions
	StepStrategy
	StepBudget
	StepPowerLevel
	StepWinConditions
	StepInteraction
	StepComplexity
	StepRestrictions
	StepPolitics
	StepSummary

	stepCount
)

// Step is one wizard step: a title, a validator gating forward progression,
// and an optional skip predicate evaluated before the step is shown.
//
// Skip predicates must not be tautologically true: the machine's
// skip-chaining loop relies on at least one reachable step; this is a
// construction-time contract asserted in tests, not enforced at runtime.
type Step struct {
	Index    int
	Title    string
	Validate Validator
	Skip     func(r model.ConsultationRecord) bool
}

var steps = []Step{
	{Index: StepCommander, Title: "Commander", Validate: validateCommander},
	{
		Index:    StepSuggestions,
		Title:    "Commander Suggestions",
		Validate: validateSuggestions,
		// Only shown when the user asked for suggestions and hasn't
		// picked a commander yet.
		Skip: func(r model.ConsultationRecord) bool {
			return !r.NeedsCommanderSuggestions || r.Commander != ""
		},
	},
	{Index: StepStrategy, Title: "Strategy", Validate: validateStrategy},
	{Index: StepBudget, Title: "Budget", Validate: validateBudget},
	{Index: StepPowerLevel, Title: "Power Level", Validate: validatePowerLevel},
	{Index: StepWinConditions, Title: "Win Conditions", Validate: validateWinConditions},
	{Index: StepInteraction, Title: "Interaction", Validate: validateInteraction},
	{Index: StepComplexity, Title: "Complexity", Validate: validateComplexity},
	{Index: StepRestrictions, Title: "Restrictions", Validate: validateRestrictions},
	{Index: StepPolitics, Title: "Politics", Validate: validatePolitics},
	{Index: StepSummary, Title: "Summary", Validate: validateSummary},
}

// Steps returns the fixed ordered step list.
func Steps() []Step {
	return steps
}

// StepCount is the number of wizard steps.
func StepCount() int {
	return stepCount
}
