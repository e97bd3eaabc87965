package export

import (
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/tolarian/deckforge/internal/model"
)

// deckDocument is the yaml projection of a deck. It keeps the dump
// readable: cards are one line each, statistics come last.
type deckDocument struct {
	ID            string         `yaml:"id"`
	Name          string         `yaml:"name"`
	Commander     string         `yaml:"commander"`
	Strategy      string         `yaml:"strategy,omitempty"`
	PowerLevel    int            `yaml:"power_level,omitempty"`
	GeneratedAt   string         `yaml:"generated_at"`
	Cards         []cardLine     `yaml:"cards"`
	Categories    map[string]int `yaml:"categories"`
	AverageCMC    float64        `yaml:"average_cmc"`
	PeakCMC       int            `yaml:"peak_cmc"`
	LandCount     int            `yaml:"land_count"`
	NonlandCount  int            `yaml:"nonland_count"`
	TotalValueUSD float64        `yaml:"total_value_usd"`
}

type cardLine struct {
	Name  string  `yaml:"name"`
	CMC   float64 `yaml:"cmc"`
	Type  string  `yaml:"type,omitempty"`
	Price float64 `yaml:"price,omitempty"`
}

// WriteDeckYAML writes the deck as a yaml document.
func WriteDeckYAML(w io.Writer, deck *model.GeneratedDeckRecord) error {
	doc := deckDocument{
		ID:            deck.ID,
		Name:          deck.Name,
		Commander:     deck.Commander,
		Strategy:      deck.Strategy,
		PowerLevel:    deck.PowerLevel,
		GeneratedAt:   deck.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		Categories:    make(map[string]int, len(deck.Categories)),
		AverageCMC:    deck.Statistics.ManaCurve.AverageCMC,
		PeakCMC:       deck.Statistics.ManaCurve.PeakCMC,
		LandCount:     deck.Statistics.LandCount,
		NonlandCount:  deck.Statistics.NonlandCount,
		TotalValueUSD: deck.Statistics.TotalValue,
	}
	for _, c := range deck.Cards {
		doc.Cards = append(doc.Cards, cardLine{
			Name:  c.Name,
			CMC:   c.CMC,
			Type:  c.TypeLine,
			Price: c.Price,
		})
	}
	for _, cat := range deck.Categories {
		doc.Categories[string(cat.Name)] = cat.ActualCount
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return eris.Wrap(enc.Close(), "export: close yaml encoder")
}
