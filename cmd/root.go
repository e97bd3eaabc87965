package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tolarian/deckforge/internal/config"
	"github.com/tolarian/deckforge/internal/resilience"
	"github.com/tolarian/deckforge/internal/store"
	"github.com/tolarian/deckforge/pkg/brewer"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "deckforge",
	Short: "Commander deck consultation and generation",
	Long: `deckforge walks a Commander player through a deck-building
consultation, generates a deck from the finalized preferences and keeps
the results queryable and exportable.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// initStore opens the configured persistence backend and runs migrations.
// Callers own Close.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.Pool)
}

// newBrewerClient builds the recommendation-service client with the
// configured throttle and a circuit breaker over transient failures.
func newBrewerClient() brewer.Client {
	return brewer.NewClient(cfg.Brewer.Key,
		brewer.WithBaseURL(cfg.Brewer.BaseURL),
		brewer.WithRateLimit(cfg.Brewer.RatePerSecond),
		brewer.WithBreaker(resilience.NewBreaker(0, 0, nil)),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
