package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/replprobe/replprobe/decode"
	"github.com/replprobe/replprobe/repl"
	"github.com/replprobe/replprobe/types"
)

type pendingEval struct {
	expr     string
	callback func(result string, err error)
}

// fakeClient queues async evaluations so tests decide exactly when, and in
// which order, remote responses arrive.
type fakeClient struct {
	mu        sync.Mutex
	connected bool
	syncErr   error
	syncCalls []string
	pending   []pendingEval
}

func (f *fakeClient) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) EvalSync(_ context.Context, expr string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls = append(f.syncCalls, expr)
	if f.syncErr != nil {
		return "", f.syncErr
	}
	return "nil", nil
}

func (f *fakeClient) EvalAsync(_ context.Context, expr string, callback func(string, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, pendingEval{expr: expr, callback: callback})
}

func (f *fakeClient) Close() error { return nil }

// deliver pops the oldest queued evaluation and invokes its callback.
func (f *fakeClient) deliver(t *testing.T, result string, err error) string {
	t.Helper()
	f.mu.Lock()
	require.NotEmpty(t, f.pending, "no pending evaluation to deliver")
	next := f.pending[0]
	f.pending = f.pending[1:]
	f.mu.Unlock()
	next.callback(result, err)
	return next.expr
}

func (f *fakeClient) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func testConfig() *Config {
	return &Config{
		ReplAddr: "localhost:5555",
		RunOnce:  true,
		Log:      log.NewLogger(log.DiscardHandler()),
	}
}

func newTestController(t *testing.T) (*Controller, *fakeClient) {
	t.Helper()
	client := &fakeClient{connected: true}
	c, err := New(testConfig(), client)
	require.NoError(t, err)
	return c, client
}

func writeTestSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frob.clj")
	content := "(ns my.frob)\n(defn add [a b]\n  (+ a b))\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunCleanSuite(t *testing.T) {
	c, client := newTestController(t)

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, StateRunning, c.State())
	assert.NotEmpty(t, c.RunID())

	// The reporting namespace is installed before the run is triggered.
	require.Len(t, client.syncCalls, 1)
	assert.Equal(t, repl.InstallReportingExpr(), client.syncCalls[0])

	expr := client.deliver(t, `[nil 3 3 0 0 0.5]`, nil)
	assert.Equal(t, repl.RunTestsExpr(""), expr)

	assert.Equal(t, StateIdle, c.State())
	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, types.SeveritySuccess, c.Severity())
	assert.Equal(t, "Ran 3 tests in 0.50s: 3 passed, 0 failed, 0 errored", c.Summarize())

	// A clean run never fetches details.
	assert.Zero(t, client.pendingCount())

	// The install is not repeated on the next run.
	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, client.syncCalls, 1)
}

func TestRunWithProblemsAnnotates(t *testing.T) {
	c, client := newTestController(t)
	file := writeTestSource(t)

	require.NoError(t, c.Run(context.Background()))
	client.deliver(t, `[nil 2 1 1 0 0.1]`, nil)

	// Problems trigger the details fetch before the run settles.
	assert.Equal(t, StateAwaitingDetails, c.State())

	details := fmt.Sprintf(
		`[["my.frob-test/add-test" {:file %q :line 2 :name "add-test"} [[:fail "addition" "3" "4" 2]]]]`,
		file)
	expr := client.deliver(t, details, nil)
	assert.Equal(t, repl.DetailsExpr(), expr)

	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, types.SeverityFail, c.Severity())

	// Line 2 of the source spans [13, 28); the annotation covers it.
	ann, ok := c.ProblemAt(file, 15)
	require.True(t, ok)
	assert.Equal(t, types.SeverityFail, ann.Severity)
	assert.Equal(t, "addition: Expected 3, got 4", ann.Message)
	assert.Equal(t, 2, ann.Line)

	pos, err := c.PreviousProblem(file, len("(ns my.frob)\n(defn add [a b]\n  (+")) // inside line 3
	require.NoError(t, err)
	assert.Equal(t, 13, pos)
}

func TestRunRefusedWhenDisconnected(t *testing.T) {
	c, client := newTestController(t)
	client.connected = false

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotConnectedError(err))
	assert.Contains(t, err.Error(), "localhost:5555")

	// A refused run leaves no trace.
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.RunID())
	assert.Zero(t, client.pendingCount())
}

func TestRunInstallFailure(t *testing.T) {
	c, client := newTestController(t)
	client.syncErr = fmt.Errorf("read timeout")

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.Equal(t, StateIdle, c.State())
	require.Error(t, c.Wait(context.Background()))
}

func TestRunMalformedSummary(t *testing.T) {
	c, client := newTestController(t)

	require.NoError(t, c.Run(context.Background()))
	client.deliver(t, `[1 2]`, nil)

	err := c.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.True(t, decode.IsMalformedResultError(err))

	// The workspace was cleared at run start and stays clean.
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, types.SeveritySuccess, c.Severity())
	assert.Zero(t, c.aggregator.Summary().Tests)
}

func TestRunRemoteFailure(t *testing.T) {
	c, client := newTestController(t)

	require.NoError(t, c.Run(context.Background()))
	client.deliver(t, "", fmt.Errorf("connection reset"))

	err := c.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.Equal(t, StateIdle, c.State())
}

func TestSupersededRunIsDiscarded(t *testing.T) {
	c, client := newTestController(t)

	require.NoError(t, c.Run(context.Background()))
	first := c.RunID()

	// A second run supersedes the first before its summary arrives.
	require.NoError(t, c.Run(context.Background()))
	second := c.RunID()
	assert.NotEqual(t, first, second)

	// The stale summary reports problems but changes nothing: no details
	// fetch, no counter update.
	client.deliver(t, `[nil 5 0 5 0 0.2]`, nil)
	assert.Equal(t, StateRunning, c.State())
	assert.Equal(t, 1, client.pendingCount())
	assert.Zero(t, c.aggregator.Summary().Tests)

	client.deliver(t, `[nil 1 1 0 0 0.1]`, nil)
	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, types.SeveritySuccess, c.Severity())
	assert.Equal(t, 1, c.aggregator.Summary().Tests)
}

func TestClearAnnotationsResetsCounters(t *testing.T) {
	c, client := newTestController(t)
	file := writeTestSource(t)

	require.NoError(t, c.Run(context.Background()))
	client.deliver(t, `[nil 2 1 1 0 0.1]`, nil)
	details := fmt.Sprintf(
		`[["my.frob-test/add-test" {:file %q :line 2} [[:fail nil "3" "4" 2]]]]`, file)
	client.deliver(t, details, nil)
	require.NoError(t, c.Wait(context.Background()))
	require.Equal(t, types.SeverityFail, c.Severity())

	c.ClearAnnotations()

	_, ok := c.ProblemAt(file, 15)
	assert.False(t, ok)
	assert.Equal(t, types.SeveritySuccess, c.Severity())
	assert.Zero(t, c.aggregator.Summary().Tests)
}

func TestRunStartClearsPreviousState(t *testing.T) {
	c, client := newTestController(t)
	file := writeTestSource(t)

	require.NoError(t, c.Run(context.Background()))
	client.deliver(t, `[nil 2 1 1 0 0.1]`, nil)
	details := fmt.Sprintf(
		`[["my.frob-test/add-test" {:file %q :line 2} [[:error "boom" nil nil 2]]]]`, file)
	client.deliver(t, details, nil)
	require.NoError(t, c.Wait(context.Background()))
	_, ok := c.ProblemAt(file, 15)
	require.True(t, ok)

	// Annotations vanish when the next run starts, not when it reports.
	require.NoError(t, c.Run(context.Background()))
	_, ok = c.ProblemAt(file, 15)
	assert.False(t, ok)
	assert.Equal(t, types.SeveritySuccess, c.Severity())
}

func TestSkipsRecordsWithoutSourceFile(t *testing.T) {
	c, client := newTestController(t)
	file := writeTestSource(t)

	require.NoError(t, c.Run(context.Background()))
	client.deliver(t, `[nil 2 0 2 0 0.1]`, nil)

	details := fmt.Sprintf(
		`[["my.frob-test/lost" {:name "lost"} [[:fail nil "1" "2" 4]]]
		  ["my.frob-test/add-test" {:file %q :line 2} [[:fail nil "3" "4" 2]]]]`, file)
	client.deliver(t, details, nil)

	// The record without a source file is skipped; the rest still lands.
	require.NoError(t, c.Wait(context.Background()))
	_, ok := c.ProblemAt(file, 15)
	assert.True(t, ok)
}

func TestFilterThreadsThroughRun(t *testing.T) {
	c, client := newTestController(t)

	c.SetFilter("my.*")
	require.NoError(t, c.Run(context.Background()))
	expr := client.deliver(t, `[ "my.*" 1 1 0 0 0.1]`, nil)
	assert.Equal(t, repl.RunTestsExpr("my.*"), expr)

	require.NoError(t, c.Wait(context.Background()))
	assert.Contains(t, c.Summarize(), `(filter "my.*")`)

	// Clearing annotations keeps the configured filter.
	c.ClearAnnotations()
	require.NoError(t, c.Run(context.Background()))
	expr = client.deliver(t, `["my.*" 1 1 0 0 0.1]`, nil)
	assert.Equal(t, repl.RunTestsExpr("my.*"), expr)
}

// Mutations carrying a superseded generation must be refused even after an
// earlier staleness check passed: the response callbacks run on their own
// goroutines, so a new Run can land between any two steps of a handler.
func TestStaleGenerationCannotMutate(t *testing.T) {
	c, _ := newTestController(t)
	file := writeTestSource(t)

	require.NoError(t, c.Run(context.Background())) // generation 1
	require.NoError(t, c.Run(context.Background())) // generation 2 supersedes

	rec := types.TestResultRecord{
		TestID:     "my.frob-test/add-test",
		SourceFile: file,
		Line:       2,
		Assertions: []types.AssertionOutcome{
			{Kind: types.AssertionFail, Expected: "3", Actual: "4", Line: 2},
		},
	}

	c.applyResults(1, []types.TestResultRecord{rec})
	_, ok := c.ProblemAt(file, 15)
	assert.False(t, ok)

	refused := c.apply(1, func() {
		c.aggregator.RecordSummary(types.TestRunSummary{Tests: 9})
	})
	assert.False(t, refused)
	assert.Zero(t, c.aggregator.Summary().Tests)

	// The live generation still goes through.
	c.applyResults(2, []types.TestResultRecord{rec})
	_, ok = c.ProblemAt(file, 15)
	require.True(t, ok)
}

func TestNilDetailsPayloadAbortsRun(t *testing.T) {
	c, client := newTestController(t)

	require.NoError(t, c.Run(context.Background()))
	client.deliver(t, `[nil 2 1 1 0 0.1]`, nil)
	client.deliver(t, `nil`, nil)

	err := c.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.True(t, decode.IsMalformedResultError(err))
	assert.Equal(t, StateIdle, c.State())
}

type spySpan struct {
	trace.Span
	ended atomic.Bool
}

func (s *spySpan) End(...trace.SpanEndOption) { s.ended.Store(true) }

type spyTracer struct {
	trace.Tracer
	spans []*spySpan
}

func newSpyTracer() *spyTracer {
	return &spyTracer{Tracer: noop.NewTracerProvider().Tracer("test")}
}

func (t *spyTracer) Start(ctx context.Context, _ string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	s := &spySpan{Span: noop.Span{}}
	t.spans = append(t.spans, s)
	return ctx, s
}

func TestSupersededRunSpanIsEnded(t *testing.T) {
	c, client := newTestController(t)
	tracer := newSpyTracer()
	c.tracer = tracer

	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, tracer.spans, 2)
	assert.True(t, tracer.spans[0].ended.Load())
	assert.False(t, tracer.spans[1].ended.Load())

	client.deliver(t, `[nil 1 1 0 0 0.1]`, nil) // superseded, ignored
	client.deliver(t, `[nil 1 1 0 0 0.1]`, nil)
	require.NoError(t, c.Wait(context.Background()))
	assert.True(t, tracer.spans[1].ended.Load())
}

func TestPathMappingOperations(t *testing.T) {
	c, _ := newTestController(t)

	impl, err := c.ImplementationPathFor("my.project.test.frob")
	require.NoError(t, err)
	assert.Equal(t, "my/project/frob.clj", impl)

	test, err := c.TestPathFor("my.project.frob")
	require.NoError(t, err)
	assert.Equal(t, "my/project/test/frob.clj", test)
}
