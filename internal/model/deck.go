package model

import "time"

// CategoryName identifies one of the fixed deck category buckets.
type CategoryName string

const (
	CategoryLands     CategoryName = "lands"
	CategoryCreatures CategoryName = "creatures"
	CategoryRemoval   CategoryName = "removal"
	CategoryDraw      CategoryName = "draw"
	CategoryRamp      CategoryName = "ramp"
	CategoryOther     CategoryName = "other"
)

// CategoryOrder is the canonical bucket ordering used for assembly and
// display.
var CategoryOrder = []CategoryName{
	CategoryLands,
	CategoryCreatures,
	CategoryRemoval,
	CategoryDraw,
	CategoryRamp,
	CategoryOther,
}

// Card is a single card as returned by the recommendation service.
type Card struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	CMC      float64  `json:"cmc"`
	TypeLine string   `json:"type_line,omitempty"`
	Types    []string `json:"types,omitempty"`
	Colors   []string `json:"colors,omitempty"`
	Rarity   string   `json:"rarity,omitempty"`
	Price    float64  `json:"price,omitempty"`
	Role     string   `json:"role,omitempty"` // service-assigned category hint
}

// IsLand reports whether the card's type line includes Land.
func (c Card) IsLand() bool {
	for _, t := range c.Types {
		if t == "Land" {
			return true
		}
	}
	return false
}

// Category is a deck bucket with its advisory target and the count of cards
// actually placed.
type Category struct {
	Name        CategoryName `json:"name"`
	TargetCount int          `json:"target_count"`
	ActualCount int          `json:"actual_count"`
}

// ManaCurveBuckets is the number of converted-mana-cost histogram buckets:
// CMC 0 through 6 plus a "7+" bucket.
const ManaCurveBuckets = 8

// ManaCurve summarizes the deck's converted-mana-cost histogram over
// nonland cards.
type ManaCurve struct {
	Distribution [ManaCurveBuckets]int `json:"distribution"`
	PeakCMC      int                   `json:"peak_cmc"`
	AverageCMC   float64               `json:"average_cmc"`
}

// DeckStatistics holds the numeric breakdowns computed at assembly time.
// Color, type and rarity distributions are percentage-normalized: their
// values sum to exactly 100.
type DeckStatistics struct {
	ManaCurve          ManaCurve      `json:"mana_curve"`
	LandRatio          float64        `json:"land_ratio"`
	ColorDistribution  map[string]int `json:"color_distribution"`
	TypeDistribution   map[string]int `json:"type_distribution"`
	RarityDistribution map[string]int `json:"rarity_distribution"`
	TotalValue         float64        `json:"total_value"`
	LandCount          int            `json:"land_count"`
	NonlandCount       int            `json:"nonland_count"`
}

// GeneratedDeckRecord is the canonical deck produced by one successful
// generation attempt. It is immutable after assembly; edits go through the
// deck-editing surface, not this record.
type GeneratedDeckRecord struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Commander        string             `json:"commander"`
	Strategy         string             `json:"strategy,omitempty"`
	WinConditions    *WinConditions     `json:"win_conditions,omitempty"`
	PowerLevel       int                `json:"power_level,omitempty"`
	EstimatedBudget  float64            `json:"estimated_budget,omitempty"`
	Cards            []Card             `json:"cards"`
	Categories       []Category         `json:"categories"`
	Statistics       DeckStatistics     `json:"statistics"`
	ConsultationData ConsultationRecord `json:"consultation_data"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// GenerationConstraints are the caller-supplied bounds forwarded to the
// recommendation service.
type GenerationConstraints struct {
	Budget        *float64 `json:"budget,omitempty"`
	PowerLevel    *int     `json:"power_level,omitempty"`
	UseCollection bool     `json:"use_collection"`
}
