// Package export renders generated decks to xlsx workbooks, yaml dumps
// and Notion pages.
package export

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tolarian/deckforge/internal/model"
)

var titler = cases.Title(language.English)

// WriteDeckXLSX writes a single deck as a workbook with Cards, Categories
// and Statistics sheets.
func WriteDeckXLSX(path string, deck *model.GeneratedDeckRecord) error {
	f := xlsx.NewFile()

	if err := addCardsSheet(f, deck); err != nil {
		return err
	}
	if err := addCategoriesSheet(f, deck); err != nil {
		return err
	}
	if err := addStatisticsSheet(f, deck); err != nil {
		return err
	}

	return eris.Wrapf(f.Save(path), "export: save workbook %s", path)
}

// WriteDeckListXLSX writes a summary workbook with one row per deck.
func WriteDeckListXLSX(path string, decks []model.GeneratedDeckRecord) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Decks")
	if err != nil {
		return eris.Wrap(err, "export: add decks sheet")
	}
	headerRow(sheet, "ID", "Name", "Commander", "Strategy", "Power Level", "Cards", "Total Value", "Generated At")
	for _, d := range decks {
		row := sheet.AddRow()
		row.AddCell().Value = d.ID
		row.AddCell().Value = d.Name
		row.AddCell().Value = d.Commander
		row.AddCell().Value = d.Strategy
		row.AddCell().SetInt(d.PowerLevel)
		row.AddCell().SetInt(len(d.Cards))
		row.AddCell().SetFloatWithFormat(d.Statistics.TotalValue, "0.00")
		row.AddCell().Value = d.GeneratedAt.Format("2006-01-02 15:04")
	}

	return eris.Wrapf(f.Save(path), "export: save workbook %s", path)
}

func addCardsSheet(f *xlsx.File, deck *model.GeneratedDeckRecord) error {
	sheet, err := f.AddSheet("Cards")
	if err != nil {
		return eris.Wrap(err, "export: add cards sheet")
	}
	headerRow(sheet, "Name", "CMC", "Type", "Colors", "Rarity", "Price", "Role")
	for _, c := range deck.Cards {
		row := sheet.AddRow()
		row.AddCell().Value = c.Name
		row.AddCell().SetFloat(c.CMC)
		row.AddCell().Value = c.TypeLine
		row.AddCell().Value = strings.Join(c.Colors, ", ")
		row.AddCell().Value = titler.String(c.Rarity)
		row.AddCell().SetFloatWithFormat(c.Price, "0.00")
		row.AddCell().Value = c.Role
	}
	return nil
}

func addCategoriesSheet(f *xlsx.File, deck *model.GeneratedDeckRecord) error {
	sheet, err := f.AddSheet("Categories")
	if err != nil {
		return eris.Wrap(err, "export: add categories sheet")
	}
	headerRow(sheet, "Category", "Target", "Actual")
	for _, cat := range deck.Categories {
		row := sheet.AddRow()
		row.AddCell().Value = titler.String(string(cat.Name))
		row.AddCell().SetInt(cat.TargetCount)
		row.AddCell().SetInt(cat.ActualCount)
	}
	return nil
}

func addStatisticsSheet(f *xlsx.File, deck *model.GeneratedDeckRecord) error {
	sheet, err := f.AddSheet("Statistics")
	if err != nil {
		return eris.Wrap(err, "export: add statistics sheet")
	}
	stats := deck.Statistics

	kv := func(key, value string) {
		row := sheet.AddRow()
		row.AddCell().Value = key
		row.AddCell().Value = value
	}
	kv("Average CMC", fmt.Sprintf("%.1f", stats.ManaCurve.AverageCMC))
	kv("Peak CMC", fmt.Sprintf("%d", stats.ManaCurve.PeakCMC))
	kv("Land Count", fmt.Sprintf("%d", stats.LandCount))
	kv("Nonland Count", fmt.Sprintf("%d", stats.NonlandCount))
	kv("Land Ratio", fmt.Sprintf("%.2f", stats.LandRatio))
	kv("Total Value", fmt.Sprintf("$%.2f", stats.TotalValue))

	for bucket, count := range stats.ManaCurve.Distribution {
		label := fmt.Sprintf("CMC %d", bucket)
		if bucket == model.ManaCurveBuckets-1 {
			label = "CMC 7+"
		}
		kv(label, fmt.Sprintf("%d", count))
	}
	return nil
}

func headerRow(sheet *xlsx.Sheet, headers ...string) {
	row := sheet.AddRow()
	for _, h := range headers {
		row.AddCell().Value = h
	}
}
