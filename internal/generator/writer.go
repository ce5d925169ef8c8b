package generator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	BatchFile  = "batch_log.json"
	StreamFile = "stream_log.json"
)

// WriteDataset serializes the dataset into batch_log.json and
// stream_log.json under dir, one JSON object per line.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	batch := make([]any, 0, len(dataset.Batch)+1)
	batch = append(batch, dataset.Params)
	for _, line := range dataset.Batch {
		batch = append(batch, line)
	}
	if err := writeLines(filepath.Join(dir, BatchFile), batch); err != nil {
		return err
	}

	stream := make([]any, 0, len(dataset.Stream))
	for _, line := range dataset.Stream {
		stream = append(stream, line)
	}
	return writeLines(filepath.Join(dir, StreamFile), stream)
}

func writeLines(path string, lines []any) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(file)
	encoder := json.NewEncoder(w)
	for _, line := range lines {
		if err := encoder.Encode(line); err != nil {
			return fmt.Errorf("encode json for %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
