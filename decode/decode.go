// Package decode parses the EDN result payloads printed by the remote test
// collector into typed values. All "stringly-typed" risk of the remote
// channel is isolated here: positional arity and atom identity are
// validated explicitly before any value is used.
package decode

import (
	"fmt"

	"olympos.io/encoding/edn"

	"github.com/replprobe/replprobe/types"
)

// Summary payload shape:
//
//	[filterExpr testCount passCount failCount errorCount elapsedSeconds]
//
// filterExpr is a string or nil.
const summaryArity = 6

// Detail payload shape: a sequence of
//
//	[qualifiedName metadataMap assertionVector]
//
// triples, where each assertion is [kind message expected actual line] and
// kind is one of :pass :fail :error.
const (
	detailArity    = 3
	assertionArity = 5
)

// DecodeSummary decodes the summary payload of a completed run. Decoding is
// pure and idempotent; the same payload always yields an equal summary.
func DecodeSummary(raw string) (types.TestRunSummary, error) {
	var v any
	if err := edn.Unmarshal([]byte(raw), &v); err != nil {
		return types.TestRunSummary{}, NewMalformedResultError("unreadable summary: %v", err)
	}
	elems, ok := sequence(v)
	if !ok {
		return types.TestRunSummary{}, NewMalformedResultError("summary is not a sequence")
	}
	if len(elems) != summaryArity {
		return types.TestRunSummary{}, NewMalformedResultError("summary arity %d, want %d", len(elems), summaryArity)
	}

	filter, err := optString(elems[0], "filter")
	if err != nil {
		return types.TestRunSummary{}, err
	}
	counts := make([]int, 4)
	names := []string{"test count", "pass count", "fail count", "error count"}
	for i := 0; i < 4; i++ {
		n, err := intValue(elems[i+1], names[i])
		if err != nil {
			return types.TestRunSummary{}, err
		}
		counts[i] = n
	}
	elapsed, err := floatValue(elems[5], "elapsed seconds")
	if err != nil {
		return types.TestRunSummary{}, err
	}

	return types.TestRunSummary{
		Filter:  filter,
		Tests:   counts[0],
		Passed:  counts[1],
		Failed:  counts[2],
		Errored: counts[3],
		Elapsed: elapsed,
	}, nil
}

// DecodeDetails decodes the per-assertion detail payload of the last run.
// Records missing optional metadata are returned with zero values; only the
// payload shape itself is validated here. A record without a source file is
// still returned; callers must check SourceFile before annotating and
// surface a MissingMetadataError for it.
func DecodeDetails(raw string) ([]types.TestResultRecord, error) {
	var v any
	if err := edn.Unmarshal([]byte(raw), &v); err != nil {
		return nil, NewMalformedResultError("unreadable details: %v", err)
	}
	// nil is not "no problems": a run that reported failures must have
	// details, so a nil payload means the remote collector misbehaved.
	if v == nil {
		return nil, NewMalformedResultError("details payload is nil")
	}
	elems, ok := sequence(v)
	if !ok {
		return nil, NewMalformedResultError("details payload is not a sequence")
	}

	records := make([]types.TestResultRecord, 0, len(elems))
	for i, e := range elems {
		rec, err := decodeRecord(e)
		if err != nil {
			return nil, NewMalformedResultError("record %d: %v", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecord(v any) (types.TestResultRecord, error) {
	triple, ok := sequence(v)
	if !ok {
		return types.TestResultRecord{}, fmt.Errorf("not a sequence")
	}
	if len(triple) != detailArity {
		return types.TestResultRecord{}, fmt.Errorf("arity %d, want %d", len(triple), detailArity)
	}

	testID, err := stringValue(triple[0], "qualified name")
	if err != nil {
		return types.TestResultRecord{}, err
	}
	rec := types.TestResultRecord{TestID: testID}

	meta, ok := mapping(triple[1])
	if !ok {
		return types.TestResultRecord{}, fmt.Errorf("metadata of %s is not a map", testID)
	}
	if file, present := meta["file"]; present && file != nil {
		if rec.SourceFile, err = stringValue(file, "file metadata"); err != nil {
			return types.TestResultRecord{}, err
		}
	}
	if line, present := meta["line"]; present && line != nil {
		if rec.Line, err = intValue(line, "line metadata"); err != nil {
			return types.TestResultRecord{}, err
		}
	}
	if name, present := meta["name"]; present && name != nil {
		if rec.Name, err = stringValue(name, "name metadata"); err != nil {
			return types.TestResultRecord{}, err
		}
	}

	assertions, ok := sequence(triple[2])
	if !ok {
		return types.TestResultRecord{}, fmt.Errorf("assertions of %s are not a sequence", testID)
	}
	// Order is kept exactly as decoded. The remote collector prepends each
	// new event, so this is reverse-chronological.
	rec.Assertions = make([]types.AssertionOutcome, 0, len(assertions))
	for j, a := range assertions {
		outcome, err := decodeAssertion(a)
		if err != nil {
			return types.TestResultRecord{}, fmt.Errorf("assertion %d of %s: %v", j, testID, err)
		}
		rec.Assertions = append(rec.Assertions, outcome)
	}
	return rec, nil
}

func decodeAssertion(v any) (types.AssertionOutcome, error) {
	elems, ok := sequence(v)
	if !ok {
		return types.AssertionOutcome{}, fmt.Errorf("not a sequence")
	}
	if len(elems) != assertionArity {
		return types.AssertionOutcome{}, fmt.Errorf("arity %d, want %d", len(elems), assertionArity)
	}

	kind, err := assertionKind(elems[0])
	if err != nil {
		return types.AssertionOutcome{}, err
	}
	out := types.AssertionOutcome{Kind: kind}
	if out.Message, err = optString(elems[1], "message"); err != nil {
		return types.AssertionOutcome{}, err
	}
	if out.Expected, err = optString(elems[2], "expected"); err != nil {
		return types.AssertionOutcome{}, err
	}
	if out.Actual, err = optString(elems[3], "actual"); err != nil {
		return types.AssertionOutcome{}, err
	}
	if elems[4] != nil {
		if out.Line, err = intValue(elems[4], "line"); err != nil {
			return types.AssertionOutcome{}, err
		}
	}
	return out, nil
}

// assertionKind validates atom identity: the kind must be one of the three
// known keywords, not merely keyword-shaped.
func assertionKind(v any) (types.AssertionKind, error) {
	kw, ok := v.(edn.Keyword)
	if !ok {
		return "", fmt.Errorf("kind %v is not a keyword", v)
	}
	switch kw {
	case edn.Keyword("pass"):
		return types.AssertionPass, nil
	case edn.Keyword("fail"):
		return types.AssertionFail, nil
	case edn.Keyword("error"):
		return types.AssertionError, nil
	}
	return "", fmt.Errorf("unknown assertion kind :%s", string(kw))
}
