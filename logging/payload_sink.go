// Package logging persists raw remote payloads on disk for debugging, so a
// malformed result can be inspected after the fact without keeping it in
// memory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// PayloadSink writes the raw EDN payloads received from the remote runtime,
// one directory per run ID.
type PayloadSink struct {
	mu      sync.Mutex
	baseDir string
}

// NewPayloadSink creates a sink rooted at baseDir.
func NewPayloadSink(baseDir string) *PayloadSink {
	return &PayloadSink{baseDir: baseDir}
}

// Store appends a named raw payload (e.g. "summary", "details") for a run.
func (s *PayloadSink) Store(runID, name, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.directoryForRunID(runID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, name+".edn")
	if err := os.WriteFile(path, []byte(raw+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write raw payload %s: %w", path, err)
	}
	return nil
}

// directoryForRunID creates and returns the payload directory of a run.
func (s *PayloadSink) directoryForRunID(runID string) (string, error) {
	dir := filepath.Join(s.baseDir, "testrun-"+runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create payload directory %s: %w", dir, err)
	}
	return dir, nil
}
