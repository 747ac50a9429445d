package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Log is an append-only JSONL audit log. A single mutex serializes writers
// so concurrent decisions never interleave partial lines.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates a JSONL log writing to path. The parent directory is
// created on first append.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes one entry as a single JSON line. Fields with nil slices are
// normalized to empty arrays so every line has the same shape.
func (l *Log) Append(e *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.ReasonCodes == nil {
		e.ReasonCodes = []string{}
	}
	if e.RuleHits == nil {
		e.RuleHits = []string{}
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("failed to create audit log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}
