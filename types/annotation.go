package types

// ProblemAnnotation associates a half-open byte range [Start, End) of a
// source file with a test failure or error message. The range covers the
// annotated line from line-start to line-end, excluding the trailing
// newline. Annotations are created when detailed results are applied and
// destroyed en masse on the next run start or an explicit clear.
type ProblemAnnotation struct {
	File     string
	Line     int
	Severity Severity
	Message  string
	Start    int
	End      int
}

// Contains reports whether offset falls inside the annotated range.
func (p ProblemAnnotation) Contains(offset int) bool {
	return offset >= p.Start && offset < p.End
}
