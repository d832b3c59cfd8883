// Implements a JSONL snapshot file: one header line followed by one row per line.

package jsonldb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Version is the snapshot file format version.
const Version = 1

// ErrNoSnapshot is returned when the snapshot file does not exist.
var ErrNoSnapshot = errors.New("no snapshot")

// Header describes what a snapshot holds. It is the first line of the file.
type Header struct {
	Version int `json:"version"`
	// Source identifies where the rows came from, e.g. a database ID.
	Source string `json:"source"`
	// Query is the query that selected the rows, verbatim.
	Query   json.RawMessage `json:"query,omitempty"`
	Created time.Time       `json:"created"`
	// Run is the ID of the run that wrote the snapshot.
	Run string `json:"run,omitempty"`
}

// Matches reports whether h was written for the same source and query.
func (h *Header) Matches(source string, query json.RawMessage) bool {
	if h.Version != Version || h.Source != source {
		return false
	}
	return bytes.Equal(compact(h.Query), compact(query))
}

func compact(b json.RawMessage) []byte {
	if len(b) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return b
	}
	return buf.Bytes()
}

// Table handles storage and in-memory caching for a single snapshot in JSONL
// format.
type Table[T any] struct {
	path string
	mu   sync.RWMutex

	header Header
	rows   []T
}

// Open loads the snapshot at path. It returns ErrNoSnapshot when the file does
// not exist yet; the returned Table is usable in that case.
func Open[T any](path string) (*Table[T], error) {
	t := &Table[T]{path: path}
	if err := t.load(); err != nil {
		return t, err
	}
	return t, nil
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoSnapshot
		}
		return fmt.Errorf("failed to open snapshot %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read snapshot %s: %w", t.path, err)
		}
		return fmt.Errorf("snapshot %s: missing header", t.path)
	}
	var h Header
	if err := json.Unmarshal(scanner.Bytes(), &h); err != nil {
		return fmt.Errorf("failed to unmarshal header in %s: %w", t.path, err)
	}

	var rows []T
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row in %s: %w", t.path, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", t.path, err)
	}

	t.header = h
	t.rows = rows
	return nil
}

// Header returns the header of the loaded snapshot.
func (t *Table[T]) Header() Header {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.header
}

// All returns a copy of all rows.
func (t *Table[T]) All() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows := make([]T, len(t.rows))
	copy(rows, t.rows)
	return rows
}

// Replace atomically rewrites the snapshot with h and rows.
func (t *Table[T]) Replace(h Header, rows []T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.write(h, rows)
}

// Remove drops the rows for which drop returns true and rewrites the snapshot,
// keeping its header. It returns the number of rows removed; nothing is
// written when it is zero.
func (t *Table[T]) Remove(drop func(T) bool) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if !drop(row) {
			kept = append(kept, row)
		}
	}
	n := len(t.rows) - len(kept)
	if n == 0 {
		return 0, nil
	}
	if err := t.write(t.header, kept); err != nil {
		return 0, err
	}
	return n, nil
}

// Discard deletes the snapshot file and empties the table.
func (t *Table[T]) Discard() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.header = Header{}
	t.rows = nil
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// write persists h and rows. The caller must hold mu.
func (t *Table[T]) write(h Header, rows []T) error {
	if h.Version == 0 {
		h.Version = Version
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", t.path, err)
	}
	tmp := t.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}()

	writer := bufio.NewWriter(f)
	enc := json.NewEncoder(writer)
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}

	t.header = h
	t.rows = rows
	return nil
}
