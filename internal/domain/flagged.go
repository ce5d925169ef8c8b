package domain

import (
	"fmt"
	"strconv"
)

// FlaggedPurchase is a stream purchase that met or exceeded the threshold
// derived from the purchaser's network history.
type FlaggedPurchase struct {
	Purchase Purchase
	Mean     float64
	StdDev   float64
}

// FlaggedRecord is the wire form of a flagged purchase: the original
// purchase fields followed by the network mean and standard deviation.
type FlaggedRecord struct {
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp"`
	ID        string `json:"id"`
	Amount    string `json:"amount"`
	Mean      string `json:"mean"`
	SD        string `json:"sd"`
}

// Record renders the flagged purchase for output.
func (f FlaggedPurchase) Record() FlaggedRecord {
	ts := f.Purchase.RawTimestamp
	if ts == "" {
		ts = f.Purchase.Timestamp.Format(TimestampLayout)
	}
	amount := f.Purchase.RawAmount
	if amount == "" {
		amount = FormatStat(f.Purchase.Amount)
	}
	id := f.Purchase.RawID
	if id == "" {
		id = strconv.FormatInt(int64(f.Purchase.UserID), 10)
	}
	return FlaggedRecord{
		EventType: string(KindPurchase),
		Timestamp: ts,
		ID:        id,
		Amount:    amount,
		Mean:      FormatStat(f.Mean),
		SD:        FormatStat(f.StdDev),
	}
}

// FormatStat formats a statistic with two decimals.
func FormatStat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
