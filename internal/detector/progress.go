package detector

import (
	"sync/atomic"

	"github.com/vanshika/netpurchase/internal/domain"
)

// Progress tracks how far a run has come. It is safe to read from other
// goroutines while the processor writes to it.
type Progress struct {
	phase     atomic.Value
	processed atomic.Int64
	flagged   atomic.Int64
	skipped   atomic.Int64
}

// ProgressSnapshot is a point-in-time copy of Progress.
type ProgressSnapshot struct {
	Phase     domain.Phase `json:"phase"`
	Processed int64        `json:"events_processed"`
	Flagged   int64        `json:"flagged"`
	Skipped   int64        `json:"skipped"`
}

// NewProgress returns an empty tracker.
func NewProgress() *Progress {
	p := &Progress{}
	p.phase.Store(domain.Phase(""))
	return p
}

// Snapshot returns the current values.
func (p *Progress) Snapshot() ProgressSnapshot {
	phase, _ := p.phase.Load().(domain.Phase)
	return ProgressSnapshot{
		Phase:     phase,
		Processed: p.processed.Load(),
		Flagged:   p.flagged.Load(),
		Skipped:   p.skipped.Load(),
	}
}

// SetPhase records the phase being processed.
func (p *Progress) SetPhase(phase domain.Phase) { p.phase.Store(phase) }

// AddSkipped counts records dropped before reaching the processor.
func (p *Progress) AddSkipped(n int) { p.skipped.Add(int64(n)) }
