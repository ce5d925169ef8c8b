package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vanshika/netpurchase/internal/config"
	"github.com/vanshika/netpurchase/internal/graph"
	"github.com/vanshika/netpurchase/internal/logging"
	"github.com/vanshika/netpurchase/internal/metrics"
	"github.com/vanshika/netpurchase/internal/pipeline"
	"github.com/vanshika/netpurchase/internal/server"
)

type runFlags struct {
	batch    string
	stream   string
	output   string
	reach    string
	logLevel string
	ops      bool
	opsPort  int
}

func newRunCmd(cfgFile *string) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the batch and stream logs and write flagged purchases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runDetection(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.batch, "batch", "", "batch log path")
	f.StringVar(&flags.stream, "stream", "", "stream log path")
	f.StringVar(&flags.output, "output", "", "flagged purchases output path")
	f.StringVar(&flags.reach, "reach", "", "neighborhood expansion: frontier or cumulative")
	f.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	f.BoolVar(&flags.ops, "ops", false, "serve /healthz and /metrics while running")
	f.IntVar(&flags.opsPort, "ops-port", 0, "ops server port")
	return cmd
}

// apply overrides cfg with flags set on the command line.
func (rf runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("batch") {
		cfg.Input.BatchPath = rf.batch
	}
	if changed("stream") {
		cfg.Input.StreamPath = rf.stream
	}
	if changed("output") {
		cfg.Input.OutputPath = rf.output
	}
	if changed("reach") {
		cfg.Detection.Reach = rf.reach
	}
	if changed("log-level") {
		cfg.Logging.Level = rf.logLevel
	}
	if changed("ops") {
		cfg.Ops.Enabled = rf.ops
	}
	if changed("ops-port") {
		cfg.Ops.Port = rf.opsPort
	}
}

func runDetection(cmd *cobra.Command, cfg config.Config) error {
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m),
	}

	var client graph.Client
	if cfg.Graph.ExportEnabled() {
		c, err := graph.NewNeo4jClient(ctx, graph.OptionsFrom(cfg.Graph))
		if err != nil {
			return err
		}
		defer func() {
			if err := c.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()
		client = c
		opts = append(opts, pipeline.WithGraphClient(c))
	}

	runner := pipeline.New(cfg, opts...)

	g, gctx := errgroup.WithContext(ctx)
	opsCtx, stopOps := context.WithCancel(gctx)
	defer stopOps()

	if cfg.Ops.Enabled {
		router := server.NewRouter(logger, server.RouterDependencies{
			Health:   server.GraphHealthService{Client: client},
			Progress: runner.Progress(),
			Metrics:  m.Handler(),
		})
		srv := server.New(logger, cfg.Ops, router)
		g.Go(func() error { return srv.Run(opsCtx) })
	}

	var sum pipeline.Summary
	g.Go(func() error {
		defer stopOps()
		var err error
		sum, err = runner.Run(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("run failed", "run_id", runner.RunID(), "error", err)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "flagged %d purchases from %d stream events (%d skipped) into %s\n",
		sum.Flagged, sum.StreamEvents, sum.Skipped, cfg.Input.OutputPath)
	if sum.Export != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d users, %d friendships and %d flagged purchases to %s\n",
			sum.Export.Users, sum.Export.Edges, sum.Export.Flagged, cfg.Graph.URI)
	}
	return nil
}
