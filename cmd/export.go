package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tolarian/deckforge/internal/export"
	"github.com/tolarian/deckforge/pkg/notion"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a generated deck",
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx <deck-id>",
	Short: "Write a deck workbook (cards, categories, statistics)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		deck, err := st.GetDeck(ctx, args[0])
		if err != nil {
			return err
		}

		path := exportOut
		if path == "" {
			path = fmt.Sprintf("%s.xlsx", deck.ID)
		}
		if err := export.WriteDeckXLSX(path, deck); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var exportYAMLCmd = &cobra.Command{
	Use:   "yaml <deck-id>",
	Short: "Write a deck as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		deck, err := st.GetDeck(ctx, args[0])
		if err != nil {
			return err
		}

		if exportOut == "" {
			return export.WriteDeckYAML(cmd.OutOrStdout(), deck)
		}
		f, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", exportOut)
		}
		defer f.Close()
		if err := export.WriteDeckYAML(f, deck); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", exportOut)
		return nil
	},
}

var exportNotionCmd = &cobra.Command{
	Use:   "notion <deck-id>",
	Short: "Push a deck summary page into the configured Notion database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export-notion"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		deck, err := st.GetDeck(ctx, args[0])
		if err != nil {
			return err
		}

		client := notion.NewClient(cfg.Notion.Token)
		page, err := notion.ExportDeck(ctx, client, cfg.Notion.DeckDB, deck)
		if err != nil {
			return err
		}

		zap.L().Info("deck exported to notion",
			zap.String("deck_id", deck.ID),
			zap.String("page_id", string(page.ID)),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "exported %s to notion page %s\n", deck.ID, page.ID)
		return nil
	},
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportOut, "out", "", "output file (default derived from deck ID, or stdout for yaml)")
	exportCmd.AddCommand(exportXLSXCmd, exportYAMLCmd, exportNotionCmd)
	rootCmd.AddCommand(exportCmd)
}
