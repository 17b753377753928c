package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/replprobe/replprobe/types"
)

func TestRecordRunEmitsAllCounts(t *testing.T) {
	summary := types.TestRunSummary{Tests: 5, Passed: 2, Failed: 1, Errored: 2, Elapsed: 1.5}
	RecordRun("run-counts", types.SeverityError, summary)

	assert.Equal(t, float64(5), testutil.ToFloat64(runTestsTotal.WithLabelValues("run-counts")))
	assert.Equal(t, float64(2), testutil.ToFloat64(runTestsPassed.WithLabelValues("run-counts")))
	assert.Equal(t, float64(1), testutil.ToFloat64(runTestsFailed.WithLabelValues("run-counts")))
	assert.Equal(t, float64(2), testutil.ToFloat64(runTestsErrored.WithLabelValues("run-counts")))
	assert.Equal(t, 1.5, testutil.ToFloat64(runDuration.WithLabelValues("run-counts")))
	assert.Equal(t, float64(1), testutil.ToFloat64(runsTotal.WithLabelValues("run-counts", "error")))
}

func TestRecordRunRejectsInvalidSeverity(t *testing.T) {
	RecordRun("run-invalid", types.Severity("bogus"), types.TestRunSummary{Tests: 3})

	assert.Zero(t, testutil.ToFloat64(runTestsTotal.WithLabelValues("run-invalid")))
}

func TestRecordAnnotation(t *testing.T) {
	RecordAnnotation("run-ann", types.SeverityFail)
	RecordAnnotation("run-ann", types.SeverityFail)

	assert.Equal(t, float64(2), testutil.ToFloat64(annotationsTotal.WithLabelValues("run-ann", "fail")))
}
