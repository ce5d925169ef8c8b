package detector

import (
	"errors"
	"fmt"

	"github.com/vanshika/netpurchase/internal/domain"
)

var (
	// ErrUnknownEventType is returned for events whose kind is not recognised.
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrUnknownPhase is returned when asked to process an unsupported phase.
	ErrUnknownPhase = errors.New("unknown phase")
)

// EventError locates a fatal processing failure within its log.
type EventError struct {
	Phase domain.Phase
	Index int
	Line  int
	Kind  domain.EventKind
	Err   error
}

func (e *EventError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s line %d (%s): %v", e.Phase, e.Line, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s event %d (%s): %v", e.Phase, e.Index, e.Kind, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }
