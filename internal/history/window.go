// Package history holds the bounded purchase windows kept per user and the
// statistics derived from them.
package history

import (
	"math"
	"time"
)

// Entry is one recorded purchase.
type Entry struct {
	Amount    float64
	Timestamp time.Time
	// Seq is the arrival order of the purchase across the whole run. It
	// breaks ties between entries sharing a timestamp.
	Seq uint64
}

// Before reports whether e sorts before other in chronological order.
func (e Entry) Before(other Entry) bool {
	if e.Timestamp.Equal(other.Timestamp) {
		return e.Seq < other.Seq
	}
	return e.Timestamp.Before(other.Timestamp)
}

// Window is a fixed-capacity FIFO of entries. Appending to a full window
// evicts the oldest appended entry.
type Window struct {
	buf   []Entry
	start int
	size  int
}

// NewWindow returns an empty window. A non-positive capacity yields a window
// that retains nothing.
func NewWindow(capacity int) *Window {
	if capacity < 0 {
		capacity = 0
	}
	return &Window{buf: make([]Entry, capacity)}
}

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Len returns the number of entries currently held.
func (w *Window) Len() int { return w.size }

// Append adds e as the newest entry.
func (w *Window) Append(e Entry) {
	if len(w.buf) == 0 {
		return
	}
	if w.size < len(w.buf) {
		w.buf[(w.start+w.size)%len(w.buf)] = e
		w.size++
		return
	}
	w.buf[w.start] = e
	w.start = (w.start + 1) % len(w.buf)
}

// Entries returns a copy of the held entries, oldest appended first.
func (w *Window) Entries() []Entry {
	out := make([]Entry, 0, w.size)
	for i := 0; i < w.size; i++ {
		out = append(out, w.buf[(w.start+i)%len(w.buf)])
	}
	return out
}

// Amounts returns the held amounts, oldest appended first.
func (w *Window) Amounts() []float64 {
	out := make([]float64, 0, w.size)
	for i := 0; i < w.size; i++ {
		out = append(out, w.buf[(w.start+i)%len(w.buf)].Amount)
	}
	return out
}

// Stats returns the population mean and standard deviation of the held
// amounts. Both are zero for an empty window.
func (w *Window) Stats() (mean, stddev float64) {
	return Summarize(w.Amounts())
}

// Summarize computes the population mean and standard deviation of values.
// An empty input yields zeros; a single value has zero deviation.
func Summarize(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
