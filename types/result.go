package types

import (
	"fmt"
	"strings"
)

// AssertionOutcome captures a single assertion event reported by the remote
// test collector. Message, Expected and Actual are optional; Line is zero
// when the collector could not attribute the assertion to a source line.
type AssertionOutcome struct {
	Kind     AssertionKind
	Message  string
	Expected string
	Actual   string
	Line     int
}

// Severity maps the assertion kind onto a problem severity. Passing
// assertions have no severity and return SeveritySuccess.
func (a AssertionOutcome) Severity() Severity {
	switch a.Kind {
	case AssertionError:
		return SeverityError
	case AssertionFail:
		return SeverityFail
	default:
		return SeveritySuccess
	}
}

// ProblemMessage renders the assertion as a single human-readable line for
// annotation display. Expected/actual pairs take the canonical
// "Expected x, got y" form; a collector-supplied message is prefixed when
// present.
func (a AssertionOutcome) ProblemMessage() string {
	var parts []string
	if a.Message != "" {
		parts = append(parts, a.Message)
	}
	if a.Expected != "" || a.Actual != "" {
		parts = append(parts, fmt.Sprintf("Expected %s, got %s", a.Expected, a.Actual))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("Assertion %s", a.Kind))
	}
	return strings.Join(parts, ": ")
}

// TestResultRecord holds the per-assertion results of one remote test,
// keyed by its qualified name ("namespace/name"). Assertions appear in the
// order the remote collector delivered them; the collector prepends new
// events, so that order is reverse-chronological and is preserved as-is.
type TestResultRecord struct {
	TestID     string
	SourceFile string
	Line       int
	Name       string
	Assertions []AssertionOutcome
}

// Problems returns the failing and erroring assertions of the record, in
// stored order.
func (r TestResultRecord) Problems() []AssertionOutcome {
	var out []AssertionOutcome
	for _, a := range r.Assertions {
		if a.Kind == AssertionFail || a.Kind == AssertionError {
			out = append(out, a)
		}
	}
	return out
}

// Namespace returns the namespace half of the qualified test name, or the
// whole ID when it carries no "/" separator.
func (r TestResultRecord) Namespace() string {
	if i := strings.IndexByte(r.TestID, '/'); i >= 0 {
		return r.TestID[:i]
	}
	return r.TestID
}
