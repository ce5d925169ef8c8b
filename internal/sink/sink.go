// Package sink writes flagged purchases to their destinations.
package sink

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vanshika/netpurchase/internal/domain"
)

// Sink accepts flagged purchases in the order they were found.
type Sink interface {
	Write(fp domain.FlaggedPurchase) error
	Close() error
}

// JSONLines writes one JSON object per flagged purchase.
type JSONLines struct {
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
	count  int
}

// NewJSONLines writes to w. Close flushes but does not close w.
func NewJSONLines(w io.Writer) *JSONLines {
	bw := bufio.NewWriter(w)
	return &JSONLines{w: bw, enc: json.NewEncoder(bw)}
}

// CreateFile truncates or creates path and writes to it.
func CreateFile(path string) (*JSONLines, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := NewJSONLines(file)
	s.closer = file
	return s, nil
}

// Write encodes fp as a single line.
func (s *JSONLines) Write(fp domain.FlaggedPurchase) error {
	if err := s.enc.Encode(fp.Record()); err != nil {
		return fmt.Errorf("encode flagged purchase: %w", err)
	}
	s.count++
	// flush per record so a fatal error later in the run keeps earlier output
	return s.w.Flush()
}

// Count returns how many records were written.
func (s *JSONLines) Count() int { return s.count }

// Close flushes buffered output and closes the underlying file, if any.
func (s *JSONLines) Close() error {
	err := s.w.Flush()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}

// Collector keeps flagged purchases in memory.
type Collector struct {
	Items []domain.FlaggedPurchase
}

// Write implements Sink.
func (c *Collector) Write(fp domain.FlaggedPurchase) error {
	c.Items = append(c.Items, fp)
	return nil
}

// Close implements Sink.
func (c *Collector) Close() error { return nil }

// Tee fans writes out to every sink in order.
type Tee []Sink

// Write implements Sink. It stops at the first failing sink.
func (t Tee) Write(fp domain.FlaggedPurchase) error {
	for _, s := range t {
		if err := s.Write(fp); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Sink and closes every sink.
func (t Tee) Close() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
