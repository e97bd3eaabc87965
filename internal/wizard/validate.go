// Package wizard implements the consultation wizard: per-step validation
// rules, conditional step sequencing and the session state machine.
package wizard

import (
	"strings"

	"github.com/tolarian/deckforge/internal/model"
)

// Verdict is the outcome of validating a record against one step's rules.
// Warnings are advisory only and never block progression.
type Verdict struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validator is a pure, total function producing a verdict for a partial
// record. Validators must handle every possible partial record without
// panicking.
type Validator func(r model.ConsultationRecord) Verdict

func verdict(errs, warns []string) Verdict {
	return Verdict{IsValid: len(errs) == 0, Errors: errs, Warnings: warns}
}

// Soft thresholds for the restrictions step.
const (
	maxAvoidCards      = 20
	maxAvoidStrategies = 5
	maxSecondaryWins   = 3
)

// Cross-field budget heuristics for the power-level step. Advisory only.
const (
	highPowerBudgetFloor = 500
	lowPowerBudgetCeil   = 1000
)

func validateCommander(r model.ConsultationRecord) Verdict {
	if r.Commander == "" && !r.NeedsCommanderSuggestions {
		return verdict([]string{"choose a commander or ask for suggestions"}, nil)
	}
	return verdict(nil, nil)
}

func validateSuggestions(r model.ConsultationRecord) Verdict {
	if r.Commander == "" {
		return verdict([]string{"pick a commander from the suggestions"}, nil)
	}
	return verdict(nil, nil)
}

func validateStrategy(r model.ConsultationRecord) Verdict {
	if r.Strategy == "" {
		return verdict([]string{"choose a strategy"}, nil)
	}
	return verdict(nil, nil)
}

func validateBudget(r model.ConsultationRecord) Verdict {
	var errs, warns []string
	if r.Budget != nil {
		if *r.Budget < 0 {
			errs = append(errs, "budget must be non-negative")
		} else if *r.Budget > 0 && *r.Budget < 50 {
			warns = append(warns, "budgets under $50 leave very little room beyond basic lands")
		}
	}
	return verdict(errs, warns)
}

func validatePowerLevel(r model.ConsultationRecord) Verdict {
	if r.PowerLevel == nil {
		return verdict([]string{"choose a power level"}, nil)
	}
	lvl := *r.PowerLevel
	if lvl < model.PowerLevelMin || lvl > model.PowerLevelMax {
		return verdict([]string{"power level must be between 1 and 4"}, nil)
	}
	var warns []string
	if r.Budget != nil {
		if lvl == model.PowerLevelMax && *r.Budget < highPowerBudgetFloor {
			warns = append(warns, "power level 4 decks usually need a budget of $500 or more")
		}
		if lvl == model.PowerLevelMin && *r.Budget > lowPowerBudgetCeil {
			warns = append(warns, "a budget over $1000 is unusual for a power level 1 deck")
		}
	}
	return verdict(nil, warns)
}

func validateWinConditions(r model.ConsultationRecord) Verdict {
	wc := r.WinConditions
	if wc == nil || wc.Primary == "" {
		return verdict([]string{"choose a primary win condition"}, nil)
	}
	var warns []string
	if wc.Primary == model.WinConditionCombat && wc.CombatStyle == "" {
		warns = append(warns, "combat decks play better with a combat style picked")
	}
	if wc.Primary == model.WinConditionCombo && wc.ComboType == "" {
		warns = append(warns, "combo decks play better with a combo type picked")
	}
	if len(wc.Secondary) > maxSecondaryWins {
		warns = append(warns, "more than 3 secondary win conditions dilutes the deck")
	}
	return verdict(nil, warns)
}

func validateInteraction(r model.ConsultationRecord) Verdict {
	in := r.Interaction
	if in == nil || in.Level == "" {
		return verdict([]string{"choose an interaction level"}, nil)
	}
	var warns []string
	if in.Level == model.InteractionHigh && len(in.Types) == 0 {
		warns = append(warns, "high interaction without any interaction types selected")
	}
	return verdict(nil, warns)
}

func validateComplexity(r model.ConsultationRecord) Verdict {
	if r.ComplexityLevel == "" {
		return verdict([]string{"choose a complexity level"}, nil)
	}
	return verdict(nil, nil)
}

// validateRestrictions is always valid: restrictions are optional. It still
// warns on self-contradictory or oversized lists.
func validateRestrictions(r model.ConsultationRecord) Verdict {
	re := r.Restrictions
	if re == nil {
		return verdict(nil, nil)
	}
	var warns []string
	if r.Strategy != "" {
		for _, s := range re.AvoidStrategies {
			if strings.EqualFold(s, r.Strategy) {
				warns = append(warns, "avoided strategies include your chosen strategy")
				break
			}
		}
	}
	if len(re.AvoidCards) > maxAvoidCards {
		warns = append(warns, "avoiding more than 20 cards heavily constrains generation")
	}
	if len(re.AvoidStrategies) > maxAvoidStrategies {
		warns = append(warns, "avoiding more than 5 strategies heavily constrains generation")
	}
	return verdict(nil, warns)
}

func validatePolitics(r model.ConsultationRecord) Verdict {
	return verdict(nil, nil)
}

// validateSummary is the authoritative gate before generation. It re-checks
// every required field across all prior steps, independent of which steps
// the user actually visited (covers edit-jump bypass).
func validateSummary(r model.ConsultationRecord) Verdict {
	var errs []string
	var warns []string
	if r.Commander == "" {
		errs = append(errs, "commander is missing")
	}
	if r.Strategy == "" {
		errs = append(errs, "strategy is missing")
	}
	if r.PowerLevel == nil {
		errs = append(errs, "power level is missing")
	}
	if r.WinConditions == nil || r.WinConditions.Primary == "" {
		errs = append(errs, "win condition is missing")
	}
	if r.Interaction == nil || r.Interaction.Level == "" {
		errs = append(errs, "interaction preferences are missing")
	}
	if r.ComplexityLevel == "" {
		errs = append(errs, "complexity level is missing")
	}
	// Carry forward the advisory heuristics so the summary shows them too.
	for _, v := range []Verdict{validatePowerLevel(r), validateWinConditions(r), validateRestrictions(r)} {
		warns = append(warns, v.Warnings...)
	}
	return verdict(errs, warns)
}

// ValidateStep runs the validator for the given step index. Out-of-range
// indices return a valid verdict.
func ValidateStep(index int, r model.ConsultationRecord) Verdict {
	steps := Steps()
	if index < 0 || index >= len(steps) {
		return verdict(nil, nil)
	}
	return steps[index].Validate(r)
}

// ValidateAllSteps aggregates errors and warnings from step 0 through
// uptoIndex inclusive, skipping steps whose skip predicate fires. Used for
// the one-shot "can we submit" check.
func ValidateAllSteps(uptoIndex int, r model.ConsultationRecord) Verdict {
	steps := Steps()
	if uptoIndex >= len(steps) {
		uptoIndex = len(steps) - 1
	}
	var errs, warns []string
	for i := 0; i <= uptoIndex; i++ {
		if steps[i].Skip != nil && steps[i].Skip(r) {
			continue
		}
		v := steps[i].Validate(r)
		errs = append(errs, v.Errors...)
		warns = append(warns, v.Warnings...)
	}
	return verdict(errs, warns)
}
