package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryAt(amount float64, minute int) Entry {
	return Entry{
		Amount:    amount,
		Timestamp: time.Date(2017, 6, 13, 11, minute, 0, 0, time.UTC),
		Seq:       uint64(minute),
	}
}

func TestWindow_EvictsOldestAppended(t *testing.T) {
	w := NewWindow(3)
	for i := 1; i <= 5; i++ {
		w.Append(entryAt(float64(i), i))
		assert.LessOrEqual(t, w.Len(), w.Cap())
	}

	require.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{3, 4, 5}, w.Amounts())

	entries := w.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(3), entries[0].Seq)
	assert.Equal(t, uint64(5), entries[2].Seq)
}

func TestWindow_EntriesIsACopy(t *testing.T) {
	w := NewWindow(2)
	w.Append(entryAt(10, 1))

	entries := w.Entries()
	entries[0].Amount = 99

	assert.Equal(t, []float64{10}, w.Amounts())
}

func TestWindow_ZeroCapacityRetainsNothing(t *testing.T) {
	w := NewWindow(0)
	w.Append(entryAt(10, 1))

	assert.Equal(t, 0, w.Len())
	assert.Empty(t, w.Entries())
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
		stddev float64
	}{
		{name: "empty", values: nil, mean: 0, stddev: 0},
		{name: "single sample", values: []float64{42}, mean: 42, stddev: 0},
		{name: "two samples", values: []float64{10, 15}, mean: 12.5, stddev: 2.5},
		{name: "population deviation", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, mean: 5, stddev: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, stddev := Summarize(tt.values)
			assert.InDelta(t, tt.mean, mean, 1e-9)
			assert.InDelta(t, tt.stddev, stddev, 1e-9)
		})
	}
}

func TestWindow_Stats(t *testing.T) {
	w := NewWindow(2)
	mean, sd := w.Stats()
	assert.Zero(t, mean)
	assert.Zero(t, sd)

	w.Append(entryAt(100, 1))
	w.Append(entryAt(10, 2))
	w.Append(entryAt(15, 3))

	mean, sd = w.Stats()
	assert.InDelta(t, 12.5, mean, 1e-9)
	assert.InDelta(t, 2.5, sd, 1e-9)
}

func TestEntry_Before(t *testing.T) {
	early := entryAt(1, 1)
	late := entryAt(1, 2)
	assert.True(t, early.Before(late))
	assert.False(t, late.Before(early))

	tied := early
	tied.Seq = early.Seq + 1
	assert.True(t, early.Before(tied))
	assert.False(t, tied.Before(early))
}
