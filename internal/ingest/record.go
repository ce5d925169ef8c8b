package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vanshika/netpurchase/internal/domain"
)

var validate = validator.New()

// flexString accepts a JSON string or number and keeps its text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

type paramsRecord struct {
	T flexString `json:"T" validate:"required"`
	D flexString `json:"D" validate:"required"`
}

// Params are the history window size and network depth carried by the first
// line of a batch log.
type Params struct {
	Window int `validate:"gte=1"`
	Depth  int `validate:"gte=0"`
}

type eventRecord struct {
	EventType string     `json:"event_type" validate:"required"`
	Timestamp flexString `json:"timestamp" validate:"required"`
	ID        flexString `json:"id" validate:"required_if=EventType purchase"`
	Amount    flexString `json:"amount" validate:"required_if=EventType purchase"`
	ID1       flexString `json:"id1" validate:"required_if=EventType befriend,required_if=EventType unfriend"`
	ID2       flexString `json:"id2" validate:"required_if=EventType befriend,required_if=EventType unfriend"`
}

func parseParams(line []byte) (Params, error) {
	var rec paramsRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return Params{}, err
	}
	if err := validate.Struct(rec); err != nil {
		return Params{}, err
	}
	window, err := strconv.Atoi(string(rec.T))
	if err != nil {
		return Params{}, fmt.Errorf("T: %w", err)
	}
	depth, err := strconv.Atoi(string(rec.D))
	if err != nil {
		return Params{}, fmt.Errorf("D: %w", err)
	}
	params := Params{Window: window, Depth: depth}
	if err := validate.Struct(params); err != nil {
		return Params{}, err
	}
	return params, nil
}

func parseEvent(line []byte) (domain.Event, error) {
	var rec eventRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return domain.Event{}, err
	}
	if err := validate.Struct(rec); err != nil {
		return domain.Event{}, err
	}

	ts, err := time.ParseInLocation(domain.TimestampLayout, string(rec.Timestamp), time.UTC)
	if err != nil {
		return domain.Event{}, fmt.Errorf("timestamp: %w", err)
	}

	kind := domain.EventKind(rec.EventType)
	switch kind {
	case domain.KindPurchase:
		id, err := parseID(rec.ID)
		if err != nil {
			return domain.Event{}, fmt.Errorf("id: %w", err)
		}
		amount, err := decimal.NewFromString(string(rec.Amount))
		if err != nil {
			return domain.Event{}, fmt.Errorf("amount: %w", err)
		}
		value := amount.InexactFloat64()
		if math.IsInf(value, 0) || math.IsNaN(value) {
			return domain.Event{}, fmt.Errorf("amount %s is out of range", rec.Amount)
		}
		ev := domain.NewPurchase(id, value, ts)
		ev.Purchase.RawID = string(rec.ID)
		ev.Purchase.RawAmount = string(rec.Amount)
		ev.Purchase.RawTimestamp = string(rec.Timestamp)
		return ev, nil

	case domain.KindBefriend, domain.KindUnfriend:
		a, err := parseID(rec.ID1)
		if err != nil {
			return domain.Event{}, fmt.Errorf("id1: %w", err)
		}
		b, err := parseID(rec.ID2)
		if err != nil {
			return domain.Event{}, fmt.Errorf("id2: %w", err)
		}
		return domain.Event{Kind: kind, Friendship: domain.Friendship{A: a, B: b, Timestamp: ts}}, nil

	default:
		// the processor decides what to do with kinds it does not know
		return domain.Event{Kind: kind}, nil
	}
}

func parseID(v flexString) (domain.UserID, error) {
	id, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, err
	}
	return domain.UserID(id), nil
}
