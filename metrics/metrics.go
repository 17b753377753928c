package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/replprobe/replprobe/types"
)

const (
	MetricsNamespace = "replprobe"
)

var (
	Debug                bool = true
	validSeverities           = []types.Severity{types.SeveritySuccess, types.SeverityFail, types.SeverityError}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of test runs",
	}, []string{
		"run_id",
		"severity",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Outcome of the most recent test run",
	}, []string{
		"run_id",
		"severity",
	})

	runTestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_tests_total",
		Help:      "Total number of tests executed",
	}, []string{
		"run_id",
	})

	runTestsPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_tests_passed",
		Help:      "Number of passed tests",
	}, []string{
		"run_id",
	})

	runTestsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_tests_failed",
		Help:      "Number of failed tests",
	}, []string{
		"run_id",
	})

	runTestsErrored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_tests_errored",
		Help:      "Number of errored tests",
	}, []string{
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of test runs in seconds",
	}, []string{
		"run_id",
	})

	annotationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "annotations_total",
		Help:      "Count of problem annotations placed",
	}, []string{
		"run_id",
		"severity",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordRun emits the aggregate metrics of a completed run.
func RecordRun(runID string, severity types.Severity, summary types.TestRunSummary) {
	if !isValidSeverity(severity) {
		log.Error("RecordRun - invalid severity", "severity", severity)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "runs_total",
			"run_id", runID,
			"severity", severity,
			"tests", summary.Tests)
	}
	runsTotal.WithLabelValues(runID, string(severity)).Inc()
	runResults.WithLabelValues(runID, string(severity)).Set(1)
	runTestsTotal.WithLabelValues(runID).Add(float64(summary.Tests))
	runTestsPassed.WithLabelValues(runID).Add(float64(summary.Passed))
	runTestsFailed.WithLabelValues(runID).Add(float64(summary.Failed))
	runTestsErrored.WithLabelValues(runID).Add(float64(summary.Errored))
	runDuration.WithLabelValues(runID).Set(summary.Elapsed)
}

// RecordAnnotation counts one placed problem annotation.
func RecordAnnotation(runID string, severity types.Severity) {
	annotationsTotal.WithLabelValues(runID, string(severity)).Inc()
}

func isValidSeverity(severity types.Severity) bool {
	return slices.Contains(validSeverities, severity)
}
