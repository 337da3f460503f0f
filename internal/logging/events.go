package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventWriter appends structured sync events to a JSON-Lines file, one JSON
// object per line, UTF-8, append-only. Writes are serialized with a mutex so
// lines from concurrent goroutines never interleave; the file is opened and
// closed per append so the writer holds no descriptor between events.
type EventWriter struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewEventWriter creates an event writer targeting the given file path.
// Parent directories are created on first write.
func NewEventWriter(path string) *EventWriter {
	return &EventWriter{path: path, now: time.Now}
}

// NewEventWriterWithClock creates an event writer with an injectable clock
// for deterministic tests.
func NewEventWriterWithClock(path string, now func() time.Time) *EventWriter {
	return &EventWriter{path: path, now: now}
}

// Path returns the target file path.
func (w *EventWriter) Path() string {
	return w.path
}

// Log appends one event line with the given name and payload. The payload
// map is augmented with "event" and "ts" keys; the caller's map is not
// modified.
func (w *EventWriter) Log(event string, payload map[string]any) error {
	entry := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		entry[k] = v
	}
	entry["event"] = event
	entry["ts"] = w.now().Format(time.RFC3339)

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode event %q: %w", event, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o750); err != nil {
		return fmt.Errorf("failed to create event log directory: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// AppendJSONLine appends an arbitrary value as one JSON line to the given
// file, creating parent directories as needed. Used for audit trails that
// are not sync events (conflict decisions, history entries).
func AppendJSONLine(path string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode JSON line: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return nil
}

// ReadJSONLines decodes every line of a JSON-Lines file into out, which must
// be a pointer to a slice. Missing files yield an empty result, not an error.
func ReadJSONLines[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path) // #nosec G304 - paths come from our own config
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var out []T
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1
			if len(line) == 0 {
				continue
			}
			var v T
			if err := json.Unmarshal(line, &v); err != nil {
				return nil, fmt.Errorf("failed to decode line in %s: %w", path, err)
			}
			out = append(out, v)
		}
	}
	return out, nil
}
