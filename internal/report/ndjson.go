package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/IvanShishkin/indexscan/pkg/models"
	"github.com/maruel/natural"
)

// NDJSONWriter writes one JSON object per line
type NDJSONWriter struct {
	bw    *bufio.Writer
	enc   *json.Encoder
	count int64
}

// NewNDJSONWriter creates a buffered writer. Call Flush when done.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	bw := bufio.NewWriterSize(w, 64*1024)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &NDJSONWriter{bw: bw, enc: enc}
}

// Write encodes a record followed by a newline
func (w *NDJSONWriter) Write(rec *models.FileRecord) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write record %s: %w", rec.RelPath, err)
	}
	w.count++
	return nil
}

// Flush writes any buffered data to the underlying writer
func (w *NDJSONWriter) Flush() error {
	return w.bw.Flush()
}

// Count returns the number of records written
func (w *NDJSONWriter) Count() int64 {
	return w.count
}

// WriteFile writes NDJSON to path atomically: records go to a temp file in the
// same directory, which replaces path only after fn and the flush succeed.
func WriteFile(path string, fn func(*NDJSONWriter) error) (retErr error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".indexscan-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create output file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := NewNDJSONWriter(tmp)
	if err := fn(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("cannot write output file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("cannot sync output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot close output file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// On Windows, Rename cannot replace an existing destination.
		if runtime.GOOS != "windows" {
			return err
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("cannot replace output file %s: %w", path, err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return err
		}
	}
	return nil
}

// SortRecords orders records by relative path, comparing digit runs numerically
func SortRecords(records []models.FileRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return natural.Less(records[i].RelPath, records[j].RelPath)
	})
}
