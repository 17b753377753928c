// Package probe orchestrates test runs against a live runtime: it triggers
// the suite over the remote evaluation channel, decodes the result payload,
// aggregates counters and annotates the originating source files.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/replprobe/replprobe/annotate"
	"github.com/replprobe/replprobe/decode"
	"github.com/replprobe/replprobe/logging"
	"github.com/replprobe/replprobe/metrics"
	"github.com/replprobe/replprobe/nspath"
	"github.com/replprobe/replprobe/repl"
	"github.com/replprobe/replprobe/report"
	"github.com/replprobe/replprobe/types"
)

// State identifies where the controller is in the run lifecycle.
type State string

const (
	StateIdle            State = "idle"
	StateRunning         State = "running"
	StateDecoding        State = "decoding"
	StateSummarizing     State = "summarizing"
	StateAwaitingDetails State = "awaiting-details"
	StateAnnotating      State = "annotating"
)

// Controller drives one test-run lifecycle at a time:
// clear previous annotations, invoke the remote run, decode the summary,
// update the aggregator, and when problems exist fetch and apply the
// detailed per-assertion results.
//
// At most one run is live. Starting a new run clears prior state
// synchronously and bumps the run generation; responses belonging to a
// superseded generation are discarded, which is the only cancellation
// mechanism for an in-flight remote call.
type Controller struct {
	cfg        *Config
	client     repl.Client
	aggregator *report.Aggregator
	store      *annotate.Store
	navigator  *annotate.Navigator
	mapper     *nspath.Mapper
	formatter  *report.ConsoleFormatter
	textSink   *report.TextSummarySink
	payloads   *logging.PayloadSink
	log        log.Logger
	tracer     trace.Tracer

	mu         sync.Mutex
	state      State
	generation uint64
	runID      string
	records    []types.TestResultRecord
	installed  bool
	runDone    chan struct{}
	runErr     error
	runSpan    trace.Span
}

// New creates a controller wired to the given remote channel.
func New(cfg *Config, client repl.Client) (*Controller, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if client == nil {
		return nil, errors.New("repl client is required")
	}

	mapper, err := nspath.NewMapper(cfg.Project.PathConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create path mapper: %w", err)
	}

	aggregator := report.NewAggregator(cfg.Log)
	aggregator.SetFilter(cfg.Filter)

	store := annotate.NewStore(cfg.Log)
	// Counters and annotations are cleared as one transaction, so a
	// cleared workspace never shows stale counts.
	store.OnClear(aggregator.Reset)

	c := &Controller{
		cfg:        cfg,
		client:     client,
		aggregator: aggregator,
		store:      store,
		navigator:  annotate.NewNavigator(store),
		mapper:     mapper,
		formatter:  report.NewConsoleFormatter(os.Stdout),
		log:        cfg.Log,
		tracer:     otel.Tracer("replprobe/controller"),
		state:      StateIdle,
	}
	if cfg.LogDir != "" {
		c.textSink = report.NewTextSummarySink(cfg.LogDir)
		c.payloads = logging.NewPayloadSink(cfg.LogDir)
	}

	cfg.Log.Debug("Created controller",
		"replAddr", cfg.ReplAddr,
		"filter", cfg.Filter,
		"runOnce", cfg.RunOnce,
		"logDir", cfg.LogDir)
	return c, nil
}

// Run starts a test run. It refuses to start when the remote channel is
// disconnected and otherwise returns immediately; the run completes
// asynchronously. Any prior in-flight run is superseded: its annotations
// and counters are cleared now and its eventual responses are ignored.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if !c.client.Connected() {
		c.mu.Unlock()
		return NewNotConnectedError(c.cfg.ReplAddr)
	}
	c.generation++
	gen := c.generation
	c.runID = uuid.New().String()
	runID := c.runID
	c.state = StateRunning
	c.records = nil
	c.runErr = nil
	if c.runDone != nil {
		// Release waiters of the superseded run.
		close(c.runDone)
	}
	c.runDone = make(chan struct{})
	if c.runSpan != nil {
		// The superseded run never reaches finish, so its span is ended
		// here or it would leak unexported.
		c.runSpan.End()
	}
	spanCtx, span := c.tracer.Start(ctx, "test-run")
	c.runSpan = span
	c.mu.Unlock()

	// Stale state must never be visible: clear before the new request
	// goes out, not when its response arrives.
	c.store.ClearAll()

	if err := c.ensureReportingInstalled(spanCtx); err != nil {
		c.finish(gen, NewRuntimeError(err))
		return NewRuntimeError(err)
	}

	filter := c.aggregator.Filter()
	c.log.Info("Starting test run", "run_id", runID, "filter", filter)
	c.client.EvalAsync(spanCtx, repl.RunTestsExpr(filter), func(raw string, err error) {
		c.handleSummary(spanCtx, gen, raw, err)
	})
	return nil
}

// Wait blocks until the current run reaches Idle and returns its outcome.
// It returns immediately when no run is in flight.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.runDone
	err := c.runErr
	c.mu.Unlock()
	if done == nil {
		return err
	}
	select {
	case <-done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.runErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ensureReportingInstalled loads the remote reporting namespace. The remote
// require is a no-op when already loaded, so repeated calls are safe.
func (c *Controller) ensureReportingInstalled(ctx context.Context) error {
	c.mu.Lock()
	installed := c.installed
	c.mu.Unlock()
	if installed {
		return nil
	}
	if _, err := c.client.EvalSync(ctx, repl.InstallReportingExpr()); err != nil {
		return fmt.Errorf("failed to install remote reporting: %w", err)
	}
	c.mu.Lock()
	c.installed = true
	c.mu.Unlock()
	return nil
}

// handleSummary processes the summary payload of a run. Every mutation is
// generation-checked under the lock: the callback runs on its own goroutine,
// so a superseding Run can land between any two steps here.
func (c *Controller) handleSummary(ctx context.Context, gen uint64, raw string, err error) {
	if !c.setState(gen, StateDecoding) {
		c.log.Debug("Ignoring summary of superseded run", "generation", gen)
		return
	}

	if err != nil {
		c.finish(gen, NewRuntimeError(fmt.Errorf("remote run failed: %w", err)))
		return
	}
	c.storePayload("summary", raw)

	summary, derr := decode.DecodeSummary(raw)
	if derr != nil {
		// Prior state was cleared at start, so the user sees a clean
		// "no results" workspace plus this diagnostic.
		c.finish(gen, NewRuntimeError(derr))
		return
	}

	recorded := c.apply(gen, func() {
		c.state = StateSummarizing
		c.aggregator.RecordSummary(summary)
	})
	if !recorded {
		c.log.Debug("Ignoring summary of superseded run", "generation", gen)
		return
	}
	c.log.Info("Test run summarized", "run_id", c.RunID(), "summary", c.aggregator.Format())

	if !summary.Problems() {
		c.finish(gen, nil)
		return
	}

	requested := c.apply(gen, func() {
		c.state = StateAwaitingDetails
		c.client.EvalAsync(ctx, repl.DetailsExpr(), func(raw string, err error) {
			c.handleDetails(gen, raw, err)
		})
	})
	if !requested {
		c.log.Debug("Ignoring summary of superseded run", "generation", gen)
	}
}

// handleDetails processes the per-assertion detail payload and applies the
// annotations.
func (c *Controller) handleDetails(gen uint64, raw string, err error) {
	if c.stale(gen) {
		c.log.Debug("Ignoring details of superseded run", "generation", gen)
		return
	}
	if err != nil {
		c.finish(gen, NewRuntimeError(fmt.Errorf("fetching details failed: %w", err)))
		return
	}
	c.storePayload("details", raw)

	records, derr := decode.DecodeDetails(raw)
	if derr != nil {
		c.finish(gen, NewRuntimeError(derr))
		return
	}

	if !c.setState(gen, StateAnnotating) {
		c.log.Debug("Ignoring details of superseded run", "generation", gen)
		return
	}
	c.applyResults(gen, records)

	c.apply(gen, func() { c.records = records })
	c.finish(gen, nil)
}

// applyResults places one annotation per failing or erroring assertion.
// Every step is per-item best-effort: a record without a source file or an
// annotation whose file is gone is skipped with a diagnostic, never
// aborting the run. Each insertion is generation-checked so a superseding
// run's ClearAll cannot be trailed by stale annotations.
func (c *Controller) applyResults(gen uint64, records []types.TestResultRecord) {
	runID := c.RunID()
	for _, rec := range records {
		if rec.SourceFile == "" {
			err := decode.NewMissingMetadataError(rec.TestID)
			c.log.Warn("Skipping test record", "test", rec.TestID, "err", err)
			metrics.RecordErrorDetails("missing metadata", err)
			continue
		}
		for _, problem := range rec.Problems() {
			line := problem.Line
			if line == 0 {
				line = rec.Line
			}
			severity := problem.Severity()
			live := c.apply(gen, func() {
				if _, err := c.store.Add(rec.SourceFile, line, severity, problem.ProblemMessage()); err != nil {
					c.log.Warn("Skipping annotation",
						"test", rec.TestID,
						"file", rec.SourceFile,
						"line", line,
						"err", err)
					metrics.RecordErrorDetails("annotation", err)
					return
				}
				metrics.RecordAnnotation(runID, severity)
			})
			if !live {
				c.log.Debug("Ignoring annotations of superseded run", "generation", gen)
				return
			}
		}
	}
}

// finish transitions the run back to Idle and emits the run's reporting.
func (c *Controller) finish(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.runErr = err
	runID := c.runID
	records := c.records
	if c.runDone != nil {
		close(c.runDone)
		c.runDone = nil
	}
	if c.runSpan != nil {
		c.runSpan.End()
		c.runSpan = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Error("Test run aborted", "run_id", runID, "err", err)
		metrics.RecordErrorDetails("run", err)
		return
	}

	summary := c.aggregator.Summary()
	severity := c.aggregator.Classify()
	metrics.RecordRun(runID, severity, summary)
	c.formatter.FormatResults(runID, summary, severity, records)
	if c.textSink != nil {
		if path, serr := c.textSink.Complete(runID, c.aggregator.Format(), severity, records); serr != nil {
			c.log.Warn("Failed to write run report", "err", serr)
		} else {
			c.log.Debug("Wrote run report", "path", path)
		}
	}
	c.log.Info("Test run completed", "run_id", runID, "severity", severity)
}

func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation
}

// apply runs fn only when gen is still the live generation, holding the
// lock across both the check and fn. Callbacks of a superseded run may
// interleave with a new Run at any point, so every mutation they perform
// must go through here rather than relying on an earlier staleness check.
func (c *Controller) apply(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	fn()
	return true
}

func (c *Controller) setState(gen uint64, s State) bool {
	return c.apply(gen, func() { c.state = s })
}

func (c *Controller) storePayload(name, raw string) {
	if c.payloads == nil {
		return
	}
	if err := c.payloads.Store(c.RunID(), name, raw); err != nil {
		c.log.Warn("Failed to store raw payload", "name", name, "err", err)
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StateString returns the state as a plain string, for health reporting.
func (c *Controller) StateString() string {
	return string(c.State())
}

// RunID returns the identifier of the current (or most recent) run.
func (c *Controller) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// Severity classifies the most recent run.
func (c *Controller) Severity() types.Severity {
	return c.aggregator.Classify()
}

// Summarize returns the human-readable summary sentence of the most recent
// run.
func (c *Controller) Summarize() string {
	return c.aggregator.Format()
}

// SetFilter replaces the namespace filter used by subsequent runs. An
// empty string means "no filter".
func (c *Controller) SetFilter(filter string) {
	c.aggregator.SetFilter(filter)
}

// ClearAnnotations removes every live annotation and resets the counters.
func (c *Controller) ClearAnnotations() {
	c.store.ClearAll()
}

// ProblemAt returns the annotation covering offset in file, if any.
func (c *Controller) ProblemAt(file string, offset int) (types.ProblemAnnotation, bool) {
	return c.store.FindAtPoint(file, offset)
}

// NextProblem returns the start offset of the next distinct problem region
// after offset in file.
func (c *Controller) NextProblem(file string, offset int) (int, error) {
	return c.navigator.NextBoundary(file, offset)
}

// PreviousProblem returns the start offset of the previous distinct
// problem region before offset in file.
func (c *Controller) PreviousProblem(file string, offset int) (int, error) {
	return c.navigator.PreviousBoundary(file, offset)
}

// ImplementationPathFor maps a test namespace onto the relative path of
// its implementation counterpart.
func (c *Controller) ImplementationPathFor(namespace string) (string, error) {
	return c.mapper.ImplementationPathFor(namespace)
}

// TestPathFor maps an implementation namespace onto the relative path of
// its test counterpart.
func (c *Controller) TestPathFor(namespace string) (string, error) {
	return c.mapper.TestPathFor(namespace)
}
