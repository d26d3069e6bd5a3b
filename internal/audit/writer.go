// Package audit keeps an append-only log of approver decisions.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kkookk/kkookk/internal/workflow"
)

const (
	auditFileMode = 0600
	auditDirMode  = 0755

	// FileName is the log written under the config directory.
	FileName = "decisions.jsonl"
)

// Event is one decision record written as a single JSON line.
type Event struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	StoreID string    `json:"store_id,omitempty"`
	ID      string    `json:"id"`
	Action  string    `json:"action"`
	Count   *int      `json:"count,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	Result  string    `json:"result"`
	Error   string    `json:"error,omitempty"`
}

// FromDecision converts a queue decision into its log record.
func FromDecision(d workflow.Decision) Event {
	ev := Event{
		Time:    d.Time.UTC(),
		Kind:    string(d.Kind),
		StoreID: d.StoreID,
		ID:      d.ID,
		Action:  d.Action,
		Count:   d.Count,
		Reason:  d.Reason,
		Result:  d.Class.String(),
	}
	if d.Class == workflow.ClassNone {
		ev.Result = "ok"
	}
	if d.Err != nil {
		ev.Error = d.Err.Error()
	}
	return ev
}

// Writer appends decision events to <dir>/decisions.jsonl.
type Writer struct {
	path string
	mu   sync.Mutex
}

// NewWriter creates an append-only decision writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{
		path: filepath.Join(dir, FileName),
	}
}

// Path returns the log file location.
func (w *Writer) Path() string { return w.path }

// Record implements workflow.Recorder.
func (w *Writer) Record(d workflow.Decision) error {
	return w.Append(FromDecision(d))
}

// Append writes one event as one JSONL line.
func (w *Writer) Append(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), auditDirMode); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, auditFileMode)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	encoded, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	encoded = append(encoded, '\n')

	if _, err := file.Write(encoded); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync audit file: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest events, oldest first. A missing
// log yields no events. Lines that fail to parse are skipped.
func (w *Writer) Recent(limit int) ([]Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.Open(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
		if limit > 0 && len(events) > limit {
			events = events[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit file: %w", err)
	}
	return events, nil
}
