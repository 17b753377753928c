package types

// Severity classifies the overall outcome of a test run, or the weight of a
// single recorded problem.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityFail    Severity = "fail"
	SeverityError   Severity = "error"
)

// AssertionKind represents the possible outcomes of a single assertion
// executed in the remote runtime.
type AssertionKind string

const (
	AssertionPass  AssertionKind = "pass"
	AssertionFail  AssertionKind = "fail"
	AssertionError AssertionKind = "error"
)

// TestRunSummary captures the aggregate outcome of one remote test run.
// It is immutable after decoding.
type TestRunSummary struct {
	Filter  string // namespace filter echoed by the remote runner, "" when unfiltered
	Tests   int
	Passed  int
	Failed  int
	Errored int
	Elapsed float64 // seconds
}

// Problems reports whether the run produced any failures or errors, meaning
// detailed per-assertion results are worth fetching.
func (s TestRunSummary) Problems() bool {
	return s.Failed > 0 || s.Errored > 0
}
