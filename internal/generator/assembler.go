package generator

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tolarian/deckforge/internal/model"
	"github.com/tolarian/deckforge/pkg/brewer"
)

// Category targets for a 100-card Commander list (99 slots plus the
// commander). Advisory metadata only: invariants hold against actual
// counts, not targets.
var categoryTargets = map[model.CategoryName]int{
	model.CategoryLands:     35,
	model.CategoryCreatures: 25,
	model.CategoryRemoval:   10,
	model.CategoryDraw:      10,
	model.CategoryRamp:      10,
	model.CategoryOther:     9,
}

// Assemble is the pure transform from raw generation output into the
// canonical deck record. It never mutates the response and always returns
// a fresh object graph.
func Assemble(raw *brewer.GenerateResponse, record model.ConsultationRecord, commander string) (*model.GeneratedDeckRecord, error) {
	if raw == nil {
		return nil, &AssemblyError{Reason: "nil response"}
	}
	if len(raw.Cards) == 0 {
		return nil, &AssemblyError{Reason: "response carries no cards"}
	}

	cards := make([]model.Card, len(raw.Cards))
	copy(cards, raw.Cards)
	for i := range cards {
		cards[i].Colors = append([]string(nil), raw.Cards[i].Colors...)
		cards[i].Types = append([]string(nil), raw.Cards[i].Types...)
	}

	categories := bucketize(cards)
	stats := computeStatistics(cards)

	name := raw.Name
	if name == "" {
		name = strings.TrimSpace(commander + " " + cases.Title(language.English).String(record.Strategy) + " Deck")
	}

	deck := &model.GeneratedDeckRecord{
		ID:               uuid.New().String(),
		Name:             name,
		Commander:        commander,
		Strategy:         record.Strategy,
		Cards:            cards,
		Categories:       categories,
		Statistics:       stats,
		ConsultationData: record.Clone(),
		GeneratedAt:      time.Now().UTC(),
	}
	if record.WinConditions != nil {
		wc := *record.WinConditions
		deck.WinConditions = &wc
	}
	if record.PowerLevel != nil {
		deck.PowerLevel = *record.PowerLevel
	}
	if record.Budget != nil {
		deck.EstimatedBudget = *record.Budget
	}
	return deck, nil
}

// bucketize partitions the flat card list into the fixed category buckets.
// Every card lands in exactly one bucket, so actual counts sum to the card
// count.
func bucketize(cards []model.Card) []model.Category {
	counts := make(map[model.CategoryName]int, len(model.CategoryOrder))
	for _, c := range cards {
		counts[categorize(c)]++
	}
	out := make([]model.Category, 0, len(model.CategoryOrder))
	for _, name := range model.CategoryOrder {
		out = append(out, model.Category{
			Name:        name,
			TargetCount: categoryTargets[name],
			ActualCount: counts[name],
		})
	}
	return out
}

// categorize picks the bucket for one card: the service's role hint wins,
// then the type line.
func categorize(c model.Card) model.CategoryName {
	switch strings.ToLower(c.Role) {
	case "land", "lands":
		return model.CategoryLands
	case "removal", "interaction":
		return model.CategoryRemoval
	case "draw", "card_draw", "card-draw":
		return model.CategoryDraw
	case "ramp", "mana":
		return model.CategoryRamp
	case "creature", "creatures":
		return model.CategoryCreatures
	}
	if c.IsLand() {
		return model.CategoryLands
	}
	for _, t := range c.Types {
		if t == "Creature" {
			return model.CategoryCreatures
		}
	}
	return model.CategoryOther
}

func computeStatistics(cards []model.Card) model.DeckStatistics {
	var stats model.DeckStatistics

	colorCounts := map[string]int{}
	typeCounts := map[string]int{}
	rarityCounts := map[string]int{}
	var cmcSum float64

	for _, c := range cards {
		stats.TotalValue += c.Price

		if c.IsLand() {
			stats.LandCount++
		} else {
			stats.NonlandCount++
			stats.ManaCurve.Distribution[curveBucket(c.CMC)]++
			cmcSum += c.CMC
		}

		for _, col := range c.Colors {
			colorCounts[col]++
		}
		typeCounts[primaryType(c)]++
		rarity := c.Rarity
		if rarity == "" {
			rarity = "unknown"
		}
		rarityCounts[rarity]++
	}

	// Peak: highest bucket count, ties broken by the lowest index.
	peak := 0
	for i, n := range stats.ManaCurve.Distribution {
		if n > stats.ManaCurve.Distribution[peak] {
			peak = i
		}
	}
	stats.ManaCurve.PeakCMC = peak
	if stats.NonlandCount > 0 {
		stats.ManaCurve.AverageCMC = math.Round(cmcSum/float64(stats.NonlandCount)*10) / 10
	}
	if total := len(cards); total > 0 {
		stats.LandRatio = float64(stats.LandCount) / float64(total)
	}

	stats.ColorDistribution = percentNormalize(colorCounts)
	stats.TypeDistribution = percentNormalize(typeCounts)
	stats.RarityDistribution = percentNormalize(rarityCounts)
	stats.TotalValue = math.Round(stats.TotalValue*100) / 100
	return stats
}

// curveBucket maps a converted mana cost to its histogram bucket: 0..6,
// with everything at 7 or above in the final "7+" bucket.
func curveBucket(cmc float64) int {
	b := int(cmc)
	if b < 0 {
		b = 0
	}
	if b >= model.ManaCurveBuckets-1 {
		b = model.ManaCurveBuckets - 1
	}
	return b
}

func primaryType(c model.Card) string {
	if len(c.Types) > 0 {
		return c.Types[0]
	}
	// A whitespace-only type line splits to nothing.
	if fields := strings.Fields(c.TypeLine); len(fields) > 0 {
		return fields[0]
	}
	return "Unknown"
}

// percentNormalize converts raw counts to percentages summing to exactly
// 100: every key but the last (in sorted order) is rounded, and the last
// absorbs the remainder.
func percentNormalize(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	if len(counts) == 0 {
		return out
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return out
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	remaining := 100
	for i, k := range keys {
		if i == len(keys)-1 {
			out[k] = remaining
			break
		}
		pct := int(math.Round(float64(counts[k]) / float64(total) * 100))
		if pct > remaining {
			pct = remaining
		}
		out[k] = pct
		remaining -= pct
	}
	return out
}
