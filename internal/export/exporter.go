package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/vanshika/netpurchase/internal/domain"
	"github.com/vanshika/netpurchase/internal/graph"
)

// TaskError accumulates multiple errors produced during a bulk export.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return "multiple errors: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error { return e.Errors }

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Store is the subset of the repository used by the exporter.
type Store interface {
	UpsertUsers(ctx context.Context, runID string, users []domain.UserSnapshot) (graph.Summary, error)
	UpsertFriendships(ctx context.Context, runID string, edges []domain.Edge) (graph.Summary, error)
	PruneFriendships(ctx context.Context, runID string) error
	RecordFlagged(ctx context.Context, runID string, flagged []domain.FlaggedPurchase) (graph.Summary, error)
}

// Counter observes how many records each stage wrote.
type Counter interface {
	RecordExported(stage string, n int)
}

// Dataset is the end-of-run state written to the graph store.
type Dataset struct {
	Users   []domain.UserSnapshot
	Edges   []domain.Edge
	Flagged []domain.FlaggedPurchase
}

// Report totals the counters returned by the store.
type Report struct {
	Users   int
	Edges   int
	Flagged int
	Summary graph.Summary
}

// Stage names.
const (
	StageUsers   = "users"
	StageEdges   = "friendships"
	StageFlagged = "flagged"
)

// Exporter writes a Dataset in chunks using a worker pool. Stages run in
// order so relationships always find their endpoints.
type Exporter struct {
	store     Store
	workers   int
	batchSize int
	logger    *slog.Logger
	counter   Counter
}

// Option customises an Exporter.
type Option func(*Exporter)

// WithLogger sets the exporter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCounter reports written records per stage.
func WithCounter(c Counter) Option {
	return func(e *Exporter) { e.counter = c }
}

// New creates an Exporter with the provided concurrency and chunk size.
func New(store Store, workers, batchSize int, opts ...Option) *Exporter {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	e := &Exporter{
		store:     store,
		workers:   workers,
		batchSize: batchSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes users, then friendships, then flagged purchases. Stale
// friendships are pruned only when every friendship chunk succeeded.
func (e *Exporter) Export(ctx context.Context, runID string, ds Dataset) (Report, error) {
	var (
		report Report
		mu     sync.Mutex
	)
	add := func(stage string, n int, s graph.Summary) {
		mu.Lock()
		defer mu.Unlock()
		report.Summary.Add(s)
		switch stage {
		case StageUsers:
			report.Users += n
		case StageEdges:
			report.Edges += n
		case StageFlagged:
			report.Flagged += n
		}
		if e.counter != nil {
			e.counter.RecordExported(stage, n)
		}
	}

	err := e.run(ctx, chunks(len(ds.Users), e.batchSize), func(lo, hi int) error {
		s, err := e.store.UpsertUsers(ctx, runID, ds.Users[lo:hi])
		if err == nil {
			add(StageUsers, hi-lo, s)
		}
		return err
	})
	if err != nil {
		return report, err
	}

	err = e.run(ctx, chunks(len(ds.Edges), e.batchSize), func(lo, hi int) error {
		s, err := e.store.UpsertFriendships(ctx, runID, ds.Edges[lo:hi])
		if err == nil {
			add(StageEdges, hi-lo, s)
		}
		return err
	})
	if err != nil {
		return report, err
	}
	if err := e.store.PruneFriendships(ctx, runID); err != nil {
		return report, err
	}

	err = e.run(ctx, chunks(len(ds.Flagged), e.batchSize), func(lo, hi int) error {
		s, err := e.store.RecordFlagged(ctx, runID, ds.Flagged[lo:hi])
		if err == nil {
			add(StageFlagged, hi-lo, s)
		}
		return err
	})
	if err != nil {
		return report, err
	}

	e.logger.Info("graph export complete",
		"run_id", runID,
		"users", report.Users,
		"friendships", report.Edges,
		"flagged", report.Flagged,
		"nodes_created", report.Summary.NodesCreated,
		"relationships_created", report.Summary.RelationshipsCreated,
	)
	return report, nil
}

type span struct{ lo, hi int }

func chunks(total, size int) []span {
	out := make([]span, 0, (total+size-1)/size)
	for lo := 0; lo < total; lo += size {
		out = append(out, span{lo: lo, hi: min(lo+size, total)})
	}
	return out
}

func (e *Exporter) run(ctx context.Context, spans []span, workerFn func(lo, hi int) error) error {
	if len(spans) == 0 {
		return nil
	}
	spanCh := make(chan span)
	errCh := make(chan error, len(spans))
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for sp := range spanCh {
			if err := workerFn(sp.lo, sp.hi); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < min(e.workers, len(spans)); i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for _, sp := range spans {
		select {
		case spanCh <- sp:
		case <-ctx.Done():
			break Loop
		}
	}
	close(spanCh)
	wg.Wait()
	close(errCh)

	if err := ctx.Err(); err != nil {
		return err
	}

	var taskErr TaskError
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
