package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tolarian/deckforge/internal/generator"
	"github.com/tolarian/deckforge/internal/model"
	"github.com/tolarian/deckforge/internal/resilience"
	"github.com/tolarian/deckforge/internal/wizard"
)

var (
	generateCount         int
	generateUseCollection bool
)

// deckSummary is the compact per-deck result printed after generation.
type deckSummary struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Commander  string  `json:"commander"`
	CardCount  int     `json:"card_count"`
	TotalValue float64 `json:"total_value"`
	AverageCMC float64 `json:"average_cmc"`
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a deck from the completed consultation",
	Long: `generate finalizes the saved consultation and runs the deck
generation pipeline against it. With --count above 1 it produces that
many candidate decks concurrently from the same consultation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("generate"); err != nil {
			return err
		}
		if generateCount < 1 {
			return eris.Errorf("generate: --count must be at least 1, got %d", generateCount)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		m := wizard.NewMachine(ctx, st, cfg.Wizard.SnapshotKey)
		record, err := m.Complete(ctx)
		if err != nil {
			return err
		}

		client := newBrewerClient()

		constraints := model.GenerationConstraints{
			Budget:        record.Budget,
			PowerLevel:    record.PowerLevel,
			UseCollection: generateUseCollection,
		}

		start := time.Now()
		decks := make([]*model.GeneratedDeckRecord, generateCount)
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < generateCount; i++ {
			i := i
			g.Go(func() error {
				opts := []generator.Option{generator.WithConfig(generatorConfig())}
				if generateCount == 1 {
					opts = append(opts, generator.WithProgress(func(ev generator.ProgressEvent) {
						if ev.RetryCount > 0 && ev.PhaseIndex == 0 {
							fmt.Fprintf(cmd.OutOrStdout(), "[ %3d%%] retrying (%d): %s\n", ev.Phase.Progress, ev.RetryCount, ev.Phase.Label)
							return
						}
						fmt.Fprintf(cmd.OutOrStdout(), "[ %3d%%] %s\n", ev.Phase.Progress, ev.Phase.Label)
					}))
				}

				orch := generator.New(client, opts...)
				defer orch.Close()

				deck, err := orch.Generate(gctx, record, record.Commander, constraints, model.NewSessionID("generate"))
				if err != nil {
					return err
				}
				if err := st.SaveDeck(gctx, deck); err != nil {
					return err
				}
				decks[i] = deck
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "generate")
		}

		zap.L().Info("generation complete",
			zap.Int("decks", generateCount),
			zap.String("commander", record.Commander),
			zap.Duration("elapsed", time.Since(start)),
		)

		summaries := make([]deckSummary, 0, len(decks))
		for _, d := range decks {
			summaries = append(summaries, deckSummary{
				ID:         d.ID,
				Name:       d.Name,
				Commander:  d.Commander,
				CardCount:  len(d.Cards),
				TotalValue: d.Statistics.TotalValue,
				AverageCMC: d.Statistics.ManaCurve.AverageCMC,
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	},
}

// generatorConfig maps the generation section of the config onto the
// orchestrator's policy knobs.
func generatorConfig() generator.Config {
	retry := resilience.DefaultRetryConfig()
	if cfg.Generation.RetryBaseDelayMs > 0 {
		retry.BaseDelay = cfg.Generation.RetryBaseDelay()
	}
	return generator.Config{
		Retry:          retry,
		AutoRetryLimit: cfg.Generation.AutoRetryLimit,
		AnalyzeDelay:   cfg.Generation.AnalyzeDelay(),
	}
}

func init() {
	generateCmd.Flags().IntVar(&generateCount, "count", 1, "number of candidate decks to generate")
	generateCmd.Flags().BoolVar(&generateUseCollection, "use-collection", false, "prefer cards from the linked collection")
	rootCmd.AddCommand(generateCmd)
}
