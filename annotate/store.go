// Package annotate owns the problem annotations placed against source
// files after a run, and navigation over them.
package annotate

import (
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/replprobe/replprobe/types"
)

// Store owns every live ProblemAnnotation. Annotations are kept per file in
// insertion order; no other component mutates them. The store retains no
// file handles, only derived ranges and metadata.
type Store struct {
	mu         sync.RWMutex
	byFile     map[string][]types.ProblemAnnotation
	clearHooks []func()
	log        log.Logger
}

// NewStore creates an empty annotation store.
func NewStore(logger log.Logger) *Store {
	if logger == nil {
		logger = log.New()
	}
	return &Store{
		byFile: make(map[string][]types.ProblemAnnotation),
		log:    logger,
	}
}

// OnClear registers a hook invoked as part of every ClearAll transaction.
// The report aggregator registers its Reset here so counters can never
// outlive the annotations they describe.
func (s *Store) OnClear(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearHooks = append(s.clearHooks, hook)
}

// Add places an annotation covering the given 1-based line of file. The
// annotated range spans from line-start to line-end in the file's current
// content, excluding the trailing newline. A missing file yields a
// FileNotFoundError; the caller treats it as per-item recoverable.
// Annotations are never deduplicated: two assertions on the same line each
// get their own record, and the later insertion wins on lookup.
func (s *Store) Add(file string, line int, severity types.Severity, message string) (types.ProblemAnnotation, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("Skipping annotation, file does not exist", "file", file, "line", line)
			return types.ProblemAnnotation{}, NewFileNotFoundError(file)
		}
		return types.ProblemAnnotation{}, fmt.Errorf("failed to read %s: %w", file, err)
	}

	start, end := lineRange(content, line)
	ann := types.ProblemAnnotation{
		File:     file,
		Line:     line,
		Severity: severity,
		Message:  message,
		Start:    start,
		End:      end,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byFile[file] = append(s.byFile[file], ann)
	return ann, nil
}

// ClearAll removes every live annotation across all files and runs the
// registered clear hooks in the same logical transaction.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.byFile = make(map[string][]types.ProblemAnnotation)
	hooks := s.clearHooks
	s.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// FindAtPoint returns the annotation whose range contains offset in file,
// preferring the most recently inserted when ranges overlap.
func (s *Store) FindAtPoint(file string, offset int) (types.ProblemAnnotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	anns := s.byFile[file]
	for i := len(anns) - 1; i >= 0; i-- {
		if anns[i].Contains(offset) {
			return anns[i], true
		}
	}
	return types.ProblemAnnotation{}, false
}

// Annotations returns the annotations of one file in insertion order.
func (s *Store) Annotations(file string) []types.ProblemAnnotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	anns := s.byFile[file]
	out := make([]types.ProblemAnnotation, len(anns))
	copy(out, anns)
	return out
}

// Count returns the number of live annotations across all files.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, anns := range s.byFile {
		n += len(anns)
	}
	return n
}

// lineRange computes the half-open byte range [start, end) of a 1-based
// line in content. Lines outside the file are clamped to the nearest real
// line, since remotely reported line numbers can drift from the buffer on
// disk.
func lineRange(content []byte, line int) (int, int) {
	if line < 1 {
		line = 1
	}
	start := 0
	current := 1
	for i := 0; i < len(content); i++ {
		if current == line {
			break
		}
		if content[i] == '\n' {
			current++
			start = i + 1
		}
	}
	end := len(content)
	for i := start; i < len(content); i++ {
		if content[i] == '\n' {
			end = i
			break
		}
	}
	return start, end
}
