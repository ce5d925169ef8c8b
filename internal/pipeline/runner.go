// Package pipeline runs a full detection pass: batch log, stream log, flagged
// output and the optional graph export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/netpurchase/internal/config"
	"github.com/vanshika/netpurchase/internal/detector"
	"github.com/vanshika/netpurchase/internal/domain"
	"github.com/vanshika/netpurchase/internal/export"
	"github.com/vanshika/netpurchase/internal/graph"
	"github.com/vanshika/netpurchase/internal/ingest"
	"github.com/vanshika/netpurchase/internal/metrics"
	"github.com/vanshika/netpurchase/internal/network"
	"github.com/vanshika/netpurchase/internal/repository"
	"github.com/vanshika/netpurchase/internal/sink"
)

// Summary describes a completed run.
type Summary struct {
	RunID        string
	Window       int
	Depth        int
	BatchEvents  int
	StreamEvents int
	Skipped      int
	Flagged      int
	Users        int
	Friendships  int
	Duration     time.Duration
	Export       *export.Report
}

// Option customises a Runner.
type Option func(*Runner)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records processing metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithProgress shares a progress tracker, typically with the ops server.
func WithProgress(p *detector.Progress) Option {
	return func(r *Runner) {
		if p != nil {
			r.progress = p
		}
	}
}

// WithGraphClient enables the export stage through client. The caller owns
// the client.
func WithGraphClient(client graph.Client) Option {
	return func(r *Runner) { r.client = client }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// Runner wires ingest, detection and output for one run.
type Runner struct {
	cfg      config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	progress *detector.Progress
	client   graph.Client
	runID    string
}

// New creates a Runner for cfg.
func New(cfg config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		progress: detector.NewProgress(),
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID returns the identifier attached to logs and exported records.
func (r *Runner) RunID() string { return r.runID }

// Progress exposes the live progress counters.
func (r *Runner) Progress() *detector.Progress { return r.progress }

// Run processes the batch log, then the stream log, writing flagged purchases
// to the configured output. The output file is created before the batch
// phase starts so a failed run leaves only what was flagged before the
// failure.
func (r *Runner) Run(ctx context.Context) (sum Summary, err error) {
	start := time.Now()
	sum.RunID = r.runID
	logger := r.logger.With("run_id", r.runID)

	batchFile, err := os.Open(r.cfg.Input.BatchPath)
	if err != nil {
		return sum, fmt.Errorf("open batch log: %w", err)
	}
	defer batchFile.Close()

	batch := ingest.NewDecoder(batchFile, domain.PhaseBatch, ingest.WithLogger(logger.With("component", "ingest")))
	params, err := batch.ReadParams()
	if err != nil {
		return sum, fmt.Errorf("batch log %s: %w", r.cfg.Input.BatchPath, err)
	}
	sum.Window, sum.Depth = params.Window, params.Depth
	logger.Info("parameters loaded", "T", params.Window, "D", params.Depth, "reach", r.cfg.Detection.Reach)

	detOpts := []detector.Option{
		detector.WithLogger(logger.With("component", "detector")),
		detector.WithProgress(r.progress),
	}
	if r.metrics != nil {
		detOpts = append(detOpts, detector.WithRecorder(r.metrics))
	}
	proc, err := detector.New(network.Params{
		Window: params.Window,
		Depth:  params.Depth,
		Reach:  network.ReachMode(r.cfg.Detection.Reach),
	}, detOpts...)
	if err != nil {
		return sum, err
	}

	out, err := sink.CreateFile(r.cfg.Input.OutputPath)
	if err != nil {
		return sum, err
	}
	collected := &sink.Collector{}
	var flagged sink.Sink = out
	if r.client != nil {
		flagged = sink.Tee{out, collected}
	}
	defer func() {
		if cerr := flagged.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close output: %w", cerr))
		}
	}()

	if sum.BatchEvents, err = proc.Run(ctx, domain.PhaseBatch, batch, nil); err != nil {
		return sum, err
	}

	streamFile, err := os.Open(r.cfg.Input.StreamPath)
	if err != nil {
		return sum, fmt.Errorf("open stream log: %w", err)
	}
	defer streamFile.Close()

	stream := ingest.NewDecoder(streamFile, domain.PhaseStream,
		ingest.WithLogger(logger.With("component", "ingest")),
		ingest.OnSkip(func(int, error) {
			r.progress.AddSkipped(1)
			if r.metrics != nil {
				r.metrics.RecordSkipped(domain.PhaseStream)
			}
		}),
	)
	sum.StreamEvents, err = proc.Run(ctx, domain.PhaseStream, stream, flagged.Write)
	sum.Skipped = stream.Skipped()
	sum.Flagged = out.Count()
	if err != nil {
		return sum, err
	}

	g := proc.Graph()
	sum.Users, sum.Friendships = g.UserCount(), g.EdgeCount()

	if r.client != nil {
		exporter := export.New(repository.New(r.client),
			r.cfg.Graph.ExportWorkers, r.cfg.Graph.ExportBatchSize,
			export.WithLogger(logger.With("component", "export")),
			export.WithCounter(r.exportCounter()),
		)
		report, err := exporter.Export(ctx, r.runID, export.Dataset{
			Users:   g.Snapshot(),
			Edges:   g.Edges(),
			Flagged: collected.Items,
		})
		if err != nil {
			return sum, fmt.Errorf("graph export: %w", err)
		}
		sum.Export = &report
	}

	sum.Duration = time.Since(start)
	logger.Info("run complete",
		"batch_events", sum.BatchEvents,
		"stream_events", sum.StreamEvents,
		"skipped", sum.Skipped,
		"flagged", sum.Flagged,
		"output", r.cfg.Input.OutputPath,
		"duration", sum.Duration.String(),
	)
	return sum, nil
}

func (r *Runner) exportCounter() export.Counter {
	if r.metrics == nil {
		return nil
	}
	return r.metrics
}
