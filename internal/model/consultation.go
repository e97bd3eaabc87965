package model

// InteractionLevel describes how much interaction the user wants to play.
type InteractionLevel string

const (
	InteractionLow    InteractionLevel = "low"
	InteractionMedium InteractionLevel = "medium"
	InteractionHigh   InteractionLevel = "high"
)

// WinConditionTag identifies a primary win-condition archetype.
type WinConditionTag string

const (
	WinConditionCombat    WinConditionTag = "combat"
	WinConditionCombo     WinConditionTag = "combo"
	WinConditionAlternate WinConditionTag = "alternate"
	WinConditionAttrition WinConditionTag = "attrition"
)

// PowerLevelMin and PowerLevelMax bound the 1-4 power bracket scale.
const (
	PowerLevelMin = 1
	PowerLevelMax = 4
)

// WinConditions describes how the deck intends to close games.
type WinConditions struct {
	Primary     WinConditionTag `json:"primary,omitempty"`
	CombatStyle string          `json:"combat_style,omitempty"` // voltron, go_wide, stompy
	ComboType   string          `json:"combo_type,omitempty"`   // infinite, synergy, engine
	Secondary   []string        `json:"secondary,omitempty"`
}

// Interaction describes the desired interaction package.
type Interaction struct {
	Level  InteractionLevel `json:"level,omitempty"`
	Types  []string         `json:"types,omitempty"` // removal, counterspells, board_wipes, stax
	Timing string           `json:"timing,omitempty"` // proactive, reactive, balanced
}

// Restrictions lists strategies and cards the user wants avoided or included.
type Restrictions struct {
	AvoidStrategies []string `json:"avoid_strategies,omitempty"`
	AvoidCards      []string `json:"avoid_cards,omitempty"`
	PetCards        []string `json:"pet_cards,omitempty"`
}

// Politics describes the user's multiplayer table posture.
type Politics struct {
	Style string `json:"style,omitempty"` // aggressive, diplomatic, hidden, kingmaker_averse
}

// ConsultationRecord is the accumulating user-preference document. Every
// field is optional until set; scalar fields use pointers so "unset" is
// distinguishable from a zero value.
type ConsultationRecord struct {
	Commander                 string         `json:"commander,omitempty"`
	NeedsCommanderSuggestions bool           `json:"needs_commander_suggestions,omitempty"`
	Strategy                  string         `json:"strategy,omitempty"`
	Budget                    *float64       `json:"budget,omitempty"`
	PowerLevel                *int           `json:"power_level,omitempty"`
	WinConditions             *WinConditions `json:"win_conditions,omitempty"`
	Interaction               *Interaction   `json:"interaction,omitempty"`
	ComplexityLevel           string         `json:"complexity_level,omitempty"`
	Restrictions              *Restrictions  `json:"restrictions,omitempty"`
	Politics                  *Politics      `json:"politics,omitempty"`
}

// DefaultRecord returns the empty consultation record a fresh wizard starts
// from.
func DefaultRecord() ConsultationRecord {
	return ConsultationRecord{}
}

// Clone returns a deep copy of the record so callers can hold a snapshot
// without aliasing the wizard's mutable state.
func (r ConsultationRecord) Clone() ConsultationRecord {
	out := r
	if r.Budget != nil {
		b := *r.Budget
		out.Budget = &b
	}
	if r.PowerLevel != nil {
		p := *r.PowerLevel
		out.PowerLevel = &p
	}
	if r.WinConditions != nil {
		wc := *r.WinConditions
		wc.Secondary = append([]string(nil), r.WinConditions.Secondary...)
		out.WinConditions = &wc
	}
	if r.Interaction != nil {
		in := *r.Interaction
		in.Types = append([]string(nil), r.Interaction.Types...)
		out.Interaction = &in
	}
	if r.Restrictions != nil {
		re := *r.Restrictions
		re.AvoidStrategies = append([]string(nil), r.Restrictions.AvoidStrategies...)
		re.AvoidCards = append([]string(nil), r.Restrictions.AvoidCards...)
		re.PetCards = append([]string(nil), r.Restrictions.PetCards...)
		out.Restrictions = &re
	}
	if r.Politics != nil {
		po := *r.Politics
		out.Politics = &po
	}
	return out
}

// Patch is a shallow-merge partial update for a ConsultationRecord. Nil
// fields leave the target untouched; JSON bodies that omit a field decode
// to nil, which makes Patch usable directly as an HTTP request body.
type Patch struct {
	Commander                 *string        `json:"commander,omitempty"`
	NeedsCommanderSuggestions *bool          `json:"needs_commander_suggestions,omitempty"`
	Strategy                  *string        `json:"strategy,omitempty"`
	Budget                    *float64       `json:"budget,omitempty"`
	PowerLevel                *int           `json:"power_level,omitempty"`
	WinConditions             *WinConditions `json:"win_conditions,omitempty"`
	Interaction               *Interaction   `json:"interaction,omitempty"`
	ComplexityLevel           *string        `json:"complexity_level,omitempty"`
	Restrictions              *Restrictions  `json:"restrictions,omitempty"`
	Politics                  *Politics      `json:"politics,omitempty"`
}

// ApplyTo merges the patch into the record. Out-of-range scalar values
// (negative budget, power level outside [1,4]) are dropped rather than
// stored, so the record never holds an invalid value; dropped fields are
// reported back so the caller can log them.
func (p Patch) ApplyTo(r *ConsultationRecord) (dropped []string) {
	if p.Commander != nil {
		r.Commander = *p.Commander
	}
	if p.NeedsCommanderSuggestions != nil {
		r.NeedsCommanderSuggestions = *p.NeedsCommanderSuggestions
	}
	if p.Strategy != nil {
		r.Strategy = *p.Strategy
	}
	if p.Budget != nil {
		if *p.Budget < 0 {
			dropped = append(dropped, "budget")
		} else {
			b := *p.Budget
			r.Budget = &b
		}
	}
	if p.PowerLevel != nil {
		if *p.PowerLevel < PowerLevelMin || *p.PowerLevel > PowerLevelMax {
			dropped = append(dropped, "power_level")
		} else {
			pl := *p.PowerLevel
			r.PowerLevel = &pl
		}
	}
	if p.WinConditions != nil {
		wc := *p.WinConditions
		r.WinConditions = &wc
	}
	if p.Interaction != nil {
		in := *p.Interaction
		r.Interaction = &in
	}
	if p.ComplexityLevel != nil {
		r.ComplexityLevel = *p.ComplexityLevel
	}
	if p.Restrictions != nil {
		re := *p.Restrictions
		r.Restrictions = &re
	}
	if p.Politics != nil {
		po := *p.Politics
		r.Politics = &po
	}
	return dropped
}
