package domain

import "time"

// TimestampLayout is the layout used by event logs for every timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// UserID identifies a member of the social network.
type UserID int64

// EventKind names the type of an event record.
type EventKind string

const (
	KindPurchase EventKind = "purchase"
	KindBefriend EventKind = "befriend"
	KindUnfriend EventKind = "unfriend"
)

// Phase distinguishes the baseline-building log from the scored log.
type Phase string

const (
	PhaseBatch  Phase = "batch"
	PhaseStream Phase = "stream"
)

// Purchase models a single purchase made by a user.
type Purchase struct {
	UserID    UserID
	Amount    float64
	Timestamp time.Time

	// RawID, RawAmount and RawTimestamp keep the text form read from the
	// log so flagged output can echo the record unchanged.
	RawID        string
	RawAmount    string
	RawTimestamp string
}

// Friendship is a befriend or unfriend between two users.
type Friendship struct {
	A         UserID
	B         UserID
	Timestamp time.Time
}

// Event is one record of an event log. Exactly one of Purchase or
// Friendship is meaningful, depending on Kind.
type Event struct {
	Kind       EventKind
	Purchase   Purchase
	Friendship Friendship

	// Line is the 1-based source line, zero when the event was built in memory.
	Line int
}

// NewPurchase builds a purchase event.
func NewPurchase(id UserID, amount float64, ts time.Time) Event {
	return Event{
		Kind: KindPurchase,
		Purchase: Purchase{
			UserID:    id,
			Amount:    amount,
			Timestamp: ts,
		},
	}
}

// NewBefriend builds a befriend event.
func NewBefriend(a, b UserID, ts time.Time) Event {
	return Event{Kind: KindBefriend, Friendship: Friendship{A: a, B: b, Timestamp: ts}}
}

// NewUnfriend builds an unfriend event.
func NewUnfriend(a, b UserID, ts time.Time) Event {
	return Event{Kind: KindUnfriend, Friendship: Friendship{A: a, B: b, Timestamp: ts}}
}
