// Package backup keeps an append-only JSONL record of answers that could not
// be stored remotely.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// DefaultPath is the backup file used when none is configured.
const DefaultPath = "answer_backup.jsonl"

// Record is one backed-up answer. Documents lists the reference URLs; Error
// describes why the remote insert failed.
type Record struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Document  string   `json:"document"`
	TimeStamp string   `json:"time_stamp"`
	Documents []string `json:"documents"`
	Error     string   `json:"error,omitempty"`
}

// Log appends records to a file, one JSON object per line. Existing lines are
// never rewritten.
type Log struct {
	path string
	mu   sync.Mutex
}

// New returns a log writing to path. The file is created on first append.
func New(path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{path: path}
}

// Path returns the backup file path.
func (l *Log) Path() string { return l.path }

// Append writes rec as a single line.
func (l *Log) Append(rec Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode backup record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open backup log: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("write backup log: %w", err)
	}
	return f.Close()
}
