package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tolarian/deckforge/internal/store"
)

var (
	decksCommander string
	decksLimit     int
	decksOffset    int
)

var decksCmd = &cobra.Command{
	Use:   "decks",
	Short: "Inspect generated decks",
}

var decksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated decks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		decks, err := st.ListDecks(ctx, store.DeckFilter{
			Commander: decksCommander,
			Limit:     decksLimit,
			Offset:    decksOffset,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(decks) == 0 {
			fmt.Fprintln(out, "no decks found")
			return nil
		}
		for _, d := range decks {
			fmt.Fprintf(out, "%s  %-40s  %-30s  %3d cards  $%.2f  %s\n",
				d.ID, d.Name, d.Commander, len(d.Cards), d.Statistics.TotalValue,
				d.GeneratedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var decksShowCmd = &cobra.Command{
	Use:   "show <deck-id>",
	Short: "Print a deck as JSON",
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

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(deck)
	},
}

var decksDeleteCmd = &cobra.Command{
	Use:   "delete <deck-id>",
	Short: "Delete a generated deck",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteDeck(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	decksListCmd.Flags().StringVar(&decksCommander, "commander", "", "filter by commander name")
	decksListCmd.Flags().IntVar(&decksLimit, "limit", 0, "maximum decks to list")
	decksListCmd.Flags().IntVar(&decksOffset, "offset", 0, "decks to skip")
	decksCmd.AddCommand(decksListCmd, decksShowCmd, decksDeleteCmd)
	rootCmd.AddCommand(decksCmd)
}
