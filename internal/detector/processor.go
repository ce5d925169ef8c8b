// Package detector replays event logs against the friendship graph and
// flags stream purchases that stand out from the purchaser's network.
package detector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vanshika/netpurchase/internal/domain"
	"github.com/vanshika/netpurchase/internal/history"
	"github.com/vanshika/netpurchase/internal/network"
)

// Sigma is the number of standard deviations above the network mean at
// which a purchase is flagged.
const Sigma = 3

// Recorder receives processing measurements.
type Recorder interface {
	EventProcessed(phase domain.Phase, kind domain.EventKind)
	PurchaseFlagged()
	NetworkRecomputed(affected int)
	PhaseCompleted(phase domain.Phase, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) EventProcessed(domain.Phase, domain.EventKind) {}
func (nopRecorder) PurchaseFlagged() {}
func (nopRecorder) NetworkRecomputed(int) {}
func (nopRecorder) PhaseCompleted(domain.Phase, time.Duration) {}

// Source yields events in log order. Next returns io.EOF when exhausted.
type Source interface {
	Next() (domain.Event, error)
}

// SliceSource serves events from memory.
type SliceSource struct {
	events []domain.Event
	pos    int
}

// NewSliceSource wraps events in a Source.
func NewSliceSource(events ...domain.Event) *SliceSource {
	return &SliceSource{events: events}
}

// Next implements Source.
func (s *SliceSource) Next() (domain.Event, error) {
	if s.pos >= len(s.events) {
		return domain.Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// EmitFunc receives flagged purchases in processing order.
type EmitFunc func(domain.FlaggedPurchase) error

// Option customises a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder sets the measurement sink.
func WithRecorder(rec Recorder) Option {
	return func(p *Processor) {
		if rec != nil {
			p.metrics = rec
		}
	}
}

// WithProgress shares a progress tracker with the processor.
func WithProgress(progress *Progress) Option {
	return func(p *Processor) {
		if progress != nil {
			p.progress = progress
		}
	}
}

// Processor owns the graph for the duration of a run and applies events to
// it one at a time.
type Processor struct {
	graph    *network.Graph
	logger   *slog.Logger
	metrics  Recorder
	progress *Progress
	seq      uint64
}

// New builds a processor over an empty graph.
func New(params network.Params, opts ...Option) (*Processor, error) {
	g, err := network.New(params)
	if err != nil {
		return nil, err
	}
	p := &Processor{
		graph:    g,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:  nopRecorder{},
		progress: NewProgress(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Graph exposes the graph being maintained.
func (p *Processor) Graph() *network.Graph { return p.graph }

// Progress exposes the progress tracker.
func (p *Processor) Progress() *Progress { return p.progress }

// Run applies every event from src in order. Flagged purchases are passed to
// emit as they are found. The first failing event aborts the run.
func (p *Processor) Run(ctx context.Context, phase domain.Phase, src Source, emit EmitFunc) (int, error) {
	if phase != domain.PhaseBatch && phase != domain.PhaseStream {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}
	p.progress.SetPhase(phase)
	start := time.Now()
	logger := p.logger.With("phase", string(phase))

	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, err
		}

		flagged, err := p.Apply(phase, ev)
		if err != nil {
			return count, &EventError{Phase: phase, Index: count, Line: ev.Line, Kind: ev.Kind, Err: err}
		}
		count++

		if flagged == nil {
			continue
		}
		logger.Info("anomalous purchase",
			"user_id", int64(flagged.Purchase.UserID),
			"amount", flagged.Purchase.Amount,
			"mean", flagged.Mean,
			"sd", flagged.StdDev,
		)
		if emit != nil {
			if err := emit(*flagged); err != nil {
				return count, fmt.Errorf("emit flagged purchase: %w", err)
			}
		}
	}

	elapsed := time.Since(start)
	p.metrics.PhaseCompleted(phase, elapsed)
	logger.Info("phase complete",
		"events", count,
		"users", p.graph.UserCount(),
		"friendships", p.graph.EdgeCount(),
		"duration", elapsed.String(),
	)
	return count, nil
}

// Apply dispatches a single event. A flagged purchase is returned only for
// stream purchases that meet the threshold.
func (p *Processor) Apply(phase domain.Phase, ev domain.Event) (*domain.FlaggedPurchase, error) {
	var (
		flagged *domain.FlaggedPurchase
		err     error
	)
	switch ev.Kind {
	case domain.KindPurchase:
		flagged, err = p.purchase(phase, ev.Purchase)
	case domain.KindBefriend:
		err = p.befriend(ev.Friendship)
	case domain.KindUnfriend:
		err = p.unfriend(ev.Friendship)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, ev.Kind)
	}
	if err != nil {
		return nil, err
	}

	p.metrics.EventProcessed(phase, ev.Kind)
	p.progress.processed.Add(1)
	if flagged != nil {
		p.metrics.PurchaseFlagged()
		p.progress.flagged.Add(1)
	}
	return flagged, nil
}

func (p *Processor) purchase(phase domain.Phase, pu domain.Purchase) (*domain.FlaggedPurchase, error) {
	p.seq++
	entry := history.Entry{Amount: pu.Amount, Timestamp: pu.Timestamp, Seq: p.seq}

	user, known := p.graph.User(pu.UserID)
	if !known {
		// first sighting: nothing to propagate and nothing to compare against
		p.graph.AddUser(pu.UserID).Own.Append(entry)
		return nil, nil
	}

	user.Own.Append(entry)
	for id := range p.graph.Network(pu.UserID) {
		if member, ok := p.graph.User(id); ok {
			member.Observed.Append(entry)
		}
	}

	if phase != domain.PhaseStream {
		return nil, nil
	}

	// the purchaser is never in its own network, so Observed does not yet
	// contain this purchase
	if err := p.graph.RecomputeStats(pu.UserID); err != nil {
		return nil, err
	}
	threshold := user.Mean + Sigma*user.StdDev
	// NaN statistics never flag
	if !(pu.Amount >= threshold) {
		return nil, nil
	}
	return &domain.FlaggedPurchase{Purchase: pu, Mean: user.Mean, StdDev: user.StdDev}, nil
}

// befriend links two users. A user befriending itself only registers the
// user: a self-friendship adds nobody to its network.
func (p *Processor) befriend(f domain.Friendship) error {
	if f.A == f.B {
		p.graph.AddUser(f.A)
		return nil
	}
	if err := p.graph.AddEdge(f.A, f.B); err != nil {
		return err
	}
	return p.recompute(f)
}

func (p *Processor) unfriend(f domain.Friendship) error {
	if f.A == f.B {
		return nil
	}
	if err := p.graph.RemoveEdge(f.A, f.B); err != nil {
		return err
	}
	return p.recompute(f)
}

func (p *Processor) recompute(f domain.Friendship) error {
	affected, err := p.graph.OnEdgeChange(f.A, f.B)
	if err != nil {
		return err
	}
	p.metrics.NetworkRecomputed(len(affected))
	p.logger.Debug("network recomputed",
		"id1", int64(f.A),
		"id2", int64(f.B),
		"affected", len(affected),
	)
	return nil
}
