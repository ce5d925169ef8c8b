// Package ingest reads JSON-lines event logs into domain events.
package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vanshika/netpurchase/internal/domain"
)

var (
	// ErrMalformedRecord is returned for a batch line that cannot be decoded.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrMissingParams is returned when a batch log has no parameter line.
	ErrMissingParams = errors.New("missing T/D parameter record")

	errLineTooLong = fmt.Errorf("line exceeds %d bytes", maxLineBytes)
)

const maxLineBytes = 1 << 20

// SkipFunc is told about every stream line that was dropped.
type SkipFunc func(line int, err error)

// DecoderOption customises a Decoder.
type DecoderOption func(*Decoder)

// WithLogger logs dropped stream lines at debug level.
func WithLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// OnSkip registers a callback for dropped stream lines.
func OnSkip(fn SkipFunc) DecoderOption {
	return func(d *Decoder) { d.onSkip = fn }
}

// Decoder yields events from a log, one JSON object per line. Batch logs are
// strict: any undecodable line is fatal. Stream logs drop such lines and
// carry on.
type Decoder struct {
	reader  *bufio.Reader
	phase   domain.Phase
	line    int
	skipped int
	logger  *slog.Logger
	onSkip  SkipFunc
}

// NewDecoder reads events for phase from r.
func NewDecoder(r io.Reader, phase domain.Phase, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		reader:  bufio.NewReaderSize(r, maxLineBytes),
		phase:   phase,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ReadParams consumes the parameter line. It must be called before Next on
// a batch log.
func (d *Decoder) ReadParams() (Params, error) {
	line, ok, err := d.nextLine()
	if errors.Is(err, errLineTooLong) {
		return Params{}, fmt.Errorf("%w: line %d: %v", ErrMalformedRecord, d.line, err)
	}
	if err != nil {
		return Params{}, err
	}
	if !ok {
		return Params{}, ErrMissingParams
	}
	params, err := parseParams(line)
	if err != nil {
		return Params{}, fmt.Errorf("%w: line %d: %v", ErrMalformedRecord, d.line, err)
	}
	return params, nil
}

// Next returns the next event or io.EOF.
func (d *Decoder) Next() (domain.Event, error) {
	for {
		line, ok, err := d.nextLine()
		if err != nil && !errors.Is(err, errLineTooLong) {
			return domain.Event{}, err
		}
		if !ok && err == nil {
			return domain.Event{}, io.EOF
		}

		var ev domain.Event
		if err == nil {
			ev, err = parseEvent(line)
		}
		if err == nil {
			ev.Line = d.line
			return ev, nil
		}
		if d.phase != domain.PhaseStream {
			return domain.Event{}, fmt.Errorf("%w: %s line %d: %v", ErrMalformedRecord, d.phase, d.line, err)
		}

		d.skipped++
		d.logger.Debug("skipping malformed record", "line", d.line, "error", err)
		if d.onSkip != nil {
			d.onSkip(d.line, err)
		}
	}
}

// Skipped returns how many lines were dropped so far.
func (d *Decoder) Skipped() int { return d.skipped }

// nextLine returns the next non-blank line. A line longer than maxLineBytes
// is consumed and reported as errLineTooLong.
func (d *Decoder) nextLine() ([]byte, bool, error) {
	for {
		raw, err := d.reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			d.line++
			if err := d.discardLine(); err != nil {
				return nil, false, err
			}
			return nil, false, errLineTooLong
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, false, fmt.Errorf("read %s log: %w", d.phase, err)
		}
		if len(raw) == 0 && err != nil {
			return nil, false, nil
		}

		d.line++
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			if err != nil {
				return nil, false, nil
			}
			continue
		}
		return append([]byte(nil), line...), true, nil
	}
}

// discardLine skips the rest of an oversized line.
func (d *Decoder) discardLine() error {
	for {
		_, err := d.reader.ReadSlice('\n')
		switch {
		case err == nil, errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return fmt.Errorf("read %s log: %w", d.phase, err)
		}
	}
}
