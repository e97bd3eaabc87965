package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tolarian/deckforge/internal/model"
)

// Property names expected on the target Notion deck database.
const (
	propName       = "Name"
	propDeckID     = "Deck ID"
	propCommander  = "Commander"
	propStrategy   = "Strategy"
	propPowerLevel = "Power Level"
	propValue      = "Total Value"
	propCardCount  = "Card Count"
)

// ExportDeck pushes a deck summary page into the given Notion database.
// Re-exporting the same deck updates the existing page instead of
// creating a duplicate.
func ExportDeck(ctx context.Context, c Client, dbID string, deck *model.GeneratedDeckRecord) (*notionapi.Page, error) {
	existing, err := findDeckPage(ctx, c, dbID, deck.ID)
	if err != nil {
		return nil, err
	}

	props := deckProperties(deck)
	if existing != "" {
		page, err := c.UpdatePage(ctx, existing, &notionapi.PageUpdateRequest{Properties: props})
		if err != nil {
			return nil, eris.Wrapf(err, "notion: update deck page %s", deck.ID)
		}
		zap.L().Info("notion: updated deck page",
			zap.String("deck_id", deck.ID),
			zap.String("page_id", string(page.ID)),
		)
		return page, nil
	}

	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
		Children:   deckBlocks(deck),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: create deck page %s", deck.ID)
	}
	zap.L().Info("notion: created deck page",
		zap.String("deck_id", deck.ID),
		zap.String("page_id", string(page.ID)),
	)
	return page, nil
}

// findDeckPage looks up an existing page by the Deck ID property. Returns
// "" when the deck has not been exported yet.
func findDeckPage(ctx context.Context, c Client, dbID, deckID string) (string, error) {
	resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: propDeckID,
			RichText: &notionapi.TextFilterCondition{Equals: deckID},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", eris.Wrapf(err, "notion: find deck page %s", deckID)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return string(resp.Results[0].ID), nil
}

func deckProperties(deck *model.GeneratedDeckRecord) notionapi.Properties {
	return notionapi.Properties{
		propName: notionapi.TitleProperty{
			Title: richText(deck.Name),
		},
		propDeckID: notionapi.RichTextProperty{
			RichText: richText(deck.ID),
		},
		propCommander: notionapi.RichTextProperty{
			RichText: richText(deck.Commander),
		},
		propStrategy: notionapi.SelectProperty{
			Select: notionapi.Option{Name: orDash(deck.Strategy)},
		},
		propPowerLevel: notionapi.NumberProperty{
			Number: float64(deck.PowerLevel),
		},
		propValue: notionapi.NumberProperty{
			Number: deck.Statistics.TotalValue,
		},
		propCardCount: notionapi.NumberProperty{
			Number: float64(len(deck.Cards)),
		},
	}
}

// deckBlocks renders the category breakdown and statistics as page content.
func deckBlocks(deck *model.GeneratedDeckRecord) []notionapi.Block {
	blocks := []notionapi.Block{
		heading2("Categories"),
	}
	for _, cat := range deck.Categories {
		blocks = append(blocks, bullet(fmt.Sprintf("%s: %d (target %d)",
			cat.Name, cat.ActualCount, cat.TargetCount)))
	}

	stats := deck.Statistics
	blocks = append(blocks,
		heading2("Statistics"),
		bullet(fmt.Sprintf("Average CMC: %.1f", stats.ManaCurve.AverageCMC)),
		bullet(fmt.Sprintf("Peak CMC: %d", stats.ManaCurve.PeakCMC)),
		bullet(fmt.Sprintf("Lands: %d / Nonlands: %d", stats.LandCount, stats.NonlandCount)),
		bullet(fmt.Sprintf("Total value: $%.2f", stats.TotalValue)),
	)
	return blocks
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{Text: &notionapi.Text{Content: s}}}
}

func heading2(s string) notionapi.Block {
	return &notionapi.Heading2Block{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeHeading2,
		},
		Heading2: notionapi.Heading{RichText: richText(s)},
	}
}

func bullet(s string) notionapi.Block {
	return &notionapi.BulletedListItemBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeBulletedListItem,
		},
		BulletedListItem: notionapi.ListItem{RichText: richText(s)},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
