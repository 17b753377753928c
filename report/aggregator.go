// Package report owns the current run's aggregate counters and renders
// them for the user.
package report

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/replprobe/replprobe/types"
)

// Aggregator holds the summary of the most recent run together with the
// namespace filter, which persists across runs until explicitly changed.
type Aggregator struct {
	mu      sync.RWMutex
	summary types.TestRunSummary
	filter  string
	log     log.Logger
}

// NewAggregator creates an empty aggregator.
func NewAggregator(logger log.Logger) *Aggregator {
	if logger == nil {
		logger = log.New()
	}
	return &Aggregator{log: logger}
}

// RecordSummary atomically replaces the current run summary.
func (a *Aggregator) RecordSummary(summary types.TestRunSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary = summary
	a.log.Debug("Recorded run summary",
		"tests", summary.Tests,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"errored", summary.Errored)
}

// Reset zeroes the counters. It runs as part of the clear transaction so a
// cleared workspace never shows stale counts. The filter survives a reset.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary = types.TestRunSummary{}
}

// Summary returns the current run summary.
func (a *Aggregator) Summary() types.TestRunSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.summary
}

// SetFilter replaces the namespace filter. An empty string means "no
// filter".
func (a *Aggregator) SetFilter(filter string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filter = filter
}

// Filter returns the active namespace filter, "" when unfiltered.
func (a *Aggregator) Filter() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.filter
}

// Classify derives the run severity: any errored assertion outweighs
// failures, and failures outweigh success.
func (a *Aggregator) Classify() types.Severity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch {
	case a.summary.Errored > 0:
		return types.SeverityError
	case a.summary.Failed > 0:
		return types.SeverityFail
	default:
		return types.SeveritySuccess
	}
}

// Format renders the summary as a stable one-line sentence.
func (a *Aggregator) Format() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.summary
	line := fmt.Sprintf("Ran %d tests in %.2fs: %d passed, %d failed, %d errored",
		s.Tests, s.Elapsed, s.Passed, s.Failed, s.Errored)
	if a.filter != "" {
		line += fmt.Sprintf(" (filter %q)", a.filter)
	}
	return line
}
