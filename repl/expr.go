package repl

import (
	"fmt"
	"strconv"
)

// reportingNamespace is the remote-side collector namespace. It enumerates
// and runs the tests and accumulates per-assertion events; this side only
// consumes its printed output.
const reportingNamespace = "replprobe.report"

// InstallReportingExpr loads the reporting namespace in the remote
// runtime. Requiring an already-loaded namespace is a no-op, so the call
// is idempotent.
func InstallReportingExpr() string {
	return fmt.Sprintf("(require '%s)", reportingNamespace)
}

// RunTestsExpr runs the full suite, optionally scoped to namespaces
// matching filter, and prints the summary literal.
func RunTestsExpr(filter string) string {
	if filter == "" {
		return fmt.Sprintf("(%s/run-all)", reportingNamespace)
	}
	return fmt.Sprintf("(%s/run-all %s)", reportingNamespace, strconv.Quote(filter))
}

// DetailsExpr prints the per-assertion detail literal for the last run.
func DetailsExpr() string {
	return fmt.Sprintf("(%s/last-run-details)", reportingNamespace)
}
