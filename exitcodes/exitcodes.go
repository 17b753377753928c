// Package exitcodes defines the standard exit codes used by replprobe.
package exitcodes

// Exit code constants used by replprobe:
//
// * Success (0): the run completed and every test passed
// * TestFailure (1): the run completed with failing or erroring tests
// * RuntimeErr (2): runtime errors such as a lost connection or a
//   malformed result payload
const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)
