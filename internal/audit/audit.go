// Package audit appends bot lifecycle records to an NDJSON file: one JSON
// object per line, append-only. The log preserves the untouched original
// idea text alongside what became of it, so refinements and creations can
// be reconstructed after the fact.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record kinds.
const (
	KindIdeaReceived  = "idea_received"
	KindDraftReplaced = "draft_replaced"
	KindIssueCreated  = "issue_created"
	KindDraftCanceled = "draft_canceled"
)

// Record is one audit entry.
type Record struct {
	Time         time.Time `json:"time"`
	Kind         string    `json:"kind"`
	OwnerID      int64     `json:"owner_id"`
	DraftID      string    `json:"draft_id,omitempty"`
	IssueType    string    `json:"issue_type,omitempty"`
	Title        string    `json:"title,omitempty"`
	OriginalText string    `json:"original_text,omitempty"`
	IssueNumber  string    `json:"issue_number,omitempty"`
	IssueURL     string    `json:"issue_url,omitempty"`
}

// Log writes records to an NDJSON file. A nil *Log discards writes, so an
// unconfigured audit path needs no branching at call sites.
type Log struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	logger  *slog.Logger
}

// Open opens (or creates) the audit log for appending.
func Open(path string, logger *slog.Logger) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &Log{
		file:    file,
		encoder: json.NewEncoder(file),
		logger:  logger,
	}, nil
}

// Write appends one record. The timestamp is stamped here if unset.
func (l *Log) Write(rec Record) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}
	if err := l.encoder.Encode(rec); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
