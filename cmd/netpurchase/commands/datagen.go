package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanshika/netpurchase/internal/generator"
)

func newDatagenCmd() *cobra.Command {
	cfg := generator.DefaultConfig()
	var outputDir string

	cmd := &cobra.Command{
		Use:   "datagen",
		Short: "Generate synthetic batch and stream logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.UnfriendChance = clampProbability(cfg.UnfriendChance)
			cfg.BefriendChance = clampProbability(cfg.BefriendChance)
			cfg.SpikeChance = clampProbability(cfg.SpikeChance)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			dataset, err := generator.New(cfg).Generate(ctx)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}
			if err := generator.WriteDataset(dataset, outputDir); err != nil {
				return fmt.Errorf("failed to write dataset: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d batch and %d stream events (%d spikes) into %s\n",
				len(dataset.Batch), len(dataset.Stream), dataset.Spikes, outputDir)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.NumUsers, "users", cfg.NumUsers, "number of distinct user ids")
	f.IntVar(&cfg.Window, "window", cfg.Window, "T written to the batch log header")
	f.IntVar(&cfg.Depth, "depth", cfg.Depth, "D written to the batch log header")
	f.IntVar(&cfg.BatchFriendships, "batch-friendships", cfg.BatchFriendships, "befriend events seeding the batch log")
	f.IntVar(&cfg.BatchPurchases, "batch-events", cfg.BatchPurchases, "mixed events following the seed friendships")
	f.IntVar(&cfg.StreamEvents, "stream-events", cfg.StreamEvents, "events in the stream log")
	f.Float64Var(&cfg.UnfriendChance, "unfriend-chance", cfg.UnfriendChance, "probability an event is an unfriend")
	f.Float64Var(&cfg.BefriendChance, "befriend-chance", cfg.BefriendChance, "probability an event is a befriend")
	f.Float64Var(&cfg.SpikeChance, "spike-chance", cfg.SpikeChance, "probability a stream purchase is a spike")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for deterministic generation")
	f.StringVar(&outputDir, "output-dir", "log_input", "directory to write batch_log.json and stream_log.json")
	return cmd
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
