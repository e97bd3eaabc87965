package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tolarian/deckforge/internal/model"
	"github.com/tolarian/deckforge/internal/recommend"
	"github.com/tolarian/deckforge/internal/wizard"
	anthropicpkg "github.com/tolarian/deckforge/pkg/anthropic"
)

var (
	suggestStrategy string
	suggestBudget   float64
	suggestPower    int
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest commanders for the current consultation",
	Long: `suggest asks for commander recommendations matching the saved
consultation. Flags override the saved strategy, budget and power level,
so it also works before any consultation exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("suggest"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		record := wizard.NewMachine(ctx, st, cfg.Wizard.SnapshotKey).Record()
		if suggestStrategy != "" {
			record.Strategy = suggestStrategy
		}
		if cmd.Flags().Changed("budget") {
			record.Budget = &suggestBudget
		}
		if cmd.Flags().Changed("power") {
			record.PowerLevel = &suggestPower
		}

		suggester := recommend.NewSuggester(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic)
		picks, err := suggester.SuggestCommanders(ctx, record)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(picks) == 0 {
			fmt.Fprintln(out, "no suggestions")
			return nil
		}
		for i, s := range picks {
			fmt.Fprintf(out, "%d. %s [%s]\n   %s\n", i+1, s.Name, strings.Join(s.Colors, ""), s.Reason)
		}
		return nil
	},
}

func init() {
	suggestCmd.Flags().StringVar(&suggestStrategy, "strategy", "", "strategy to suggest for")
	suggestCmd.Flags().Float64Var(&suggestBudget, "budget", 0, "budget in USD")
	suggestCmd.Flags().IntVar(&suggestPower, "power", model.PowerLevelMin, "power level 1-4")
	rootCmd.AddCommand(suggestCmd)
}
