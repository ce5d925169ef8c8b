package generator

import "time"

// Config drives the synthetic event log generator.
type Config struct {
	NumUsers         int
	Window           int
	Depth            int
	BatchFriendships int
	BatchPurchases   int
	StreamEvents     int
	// UnfriendChance and BefriendChance are per-event probabilities for
	// friendship changes; the remainder are purchases.
	UnfriendChance float64
	BefriendChance float64
	// SpikeChance is the probability a stream purchase is inflated far above
	// the usual spend.
	SpikeChance  float64
	MeanAmount   float64
	AmountSpread float64
	Start        time.Time
	Seed         int64
}

// DefaultConfig returns baseline settings producing a few megabytes of logs.
func DefaultConfig() Config {
	return Config{
		NumUsers:         1000,
		Window:           50,
		Depth:            2,
		BatchFriendships: 3000,
		BatchPurchases:   20000,
		StreamEvents:     5000,
		UnfriendChance:   0.02,
		BefriendChance:   0.05,
		SpikeChance:      0.01,
		MeanAmount:       50,
		AmountSpread:     15,
		Start:            time.Date(2017, 6, 13, 11, 33, 0, 0, time.UTC),
		Seed:             42,
	}
}
