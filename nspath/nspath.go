// Package nspath maps dotted namespace names onto file-system paths and
// back, following the project convention that a test namespace mirrors its
// implementation namespace with one inserted marker segment at a
// configurable pivot position.
package nspath

import (
	"fmt"
	"strings"
)

// Config describes the project naming convention.
type Config struct {
	Marker    string // marker segment distinguishing test namespaces, e.g. "test"
	Pivot     int    // pivot index over the test namespace's segments; negative counts from the end
	Extension string // source file extension, e.g. ".clj"
}

// DefaultConfig is the conventional layout: a "test" segment in the
// second-to-last position.
func DefaultConfig() Config {
	return Config{Marker: "test", Pivot: -2, Extension: ".clj"}
}

// Mapper converts between namespace names and relative source paths.
// All methods are pure.
type Mapper struct {
	cfg Config
}

// NewMapper validates the convention and returns a mapper.
func NewMapper(cfg Config) (*Mapper, error) {
	if cfg.Marker == "" {
		return nil, fmt.Errorf("marker segment is required")
	}
	if strings.Contains(cfg.Marker, ".") {
		return nil, fmt.Errorf("marker segment %q must not contain '.'", cfg.Marker)
	}
	if cfg.Extension != "" && !strings.HasPrefix(cfg.Extension, ".") {
		return nil, fmt.Errorf("extension %q must start with '.'", cfg.Extension)
	}
	return &Mapper{cfg: cfg}, nil
}

// Split breaks a dotted namespace into its segments.
func Split(namespace string) []string {
	return strings.Split(namespace, ".")
}

// resolvePivot resolves the configured pivot against the segment count of
// the test namespace form. The count varies per namespace, so resolution
// happens on every call rather than once at construction.
func (m *Mapper) resolvePivot(testSegmentCount int) (int, error) {
	idx := m.cfg.Pivot
	if idx < 0 {
		idx = testSegmentCount + idx
	}
	if idx < 0 || idx >= testSegmentCount {
		return 0, fmt.Errorf("pivot %d resolves to %d, outside [0, %d)", m.cfg.Pivot, idx, testSegmentCount)
	}
	return idx, nil
}

// StripPivot removes the marker segment from the segments of a test
// namespace, yielding the implementation namespace's segments.
func (m *Mapper) StripPivot(segments []string) ([]string, error) {
	if len(segments) < 2 {
		return nil, fmt.Errorf("namespace %q has too few segments", strings.Join(segments, "."))
	}
	idx, err := m.resolvePivot(len(segments))
	if err != nil {
		return nil, err
	}
	if segments[idx] != m.cfg.Marker {
		return nil, fmt.Errorf("namespace %q has no %q segment at pivot index %d",
			strings.Join(segments, "."), m.cfg.Marker, idx)
	}
	out := make([]string, 0, len(segments)-1)
	out = append(out, segments[:idx]...)
	out = append(out, segments[idx+1:]...)
	return out, nil
}

// InsertPivot inserts the marker segment into the segments of an
// implementation namespace, yielding the test namespace's segments.
// InsertPivot and StripPivot are exact inverses.
func (m *Mapper) InsertPivot(segments []string) ([]string, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("namespace has no segments")
	}
	idx, err := m.resolvePivot(len(segments) + 1)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(segments)+1)
	out = append(out, segments[:idx]...)
	out = append(out, m.cfg.Marker)
	out = append(out, segments[idx:]...)
	return out, nil
}

// ImplementationPathFor converts a test namespace into the relative path of
// its implementation counterpart: the marker segment is removed, segments
// are joined with "/", hyphens become underscores, and the configured
// extension is appended.
func (m *Mapper) ImplementationPathFor(namespace string) (string, error) {
	segments, err := m.StripPivot(Split(namespace))
	if err != nil {
		return "", err
	}
	return joinPath(segments, m.cfg.Extension), nil
}

// TestPathFor is the structural inverse of ImplementationPathFor: it
// converts an implementation namespace into the relative path of its test
// counterpart by inserting the marker segment at the pivot position.
func (m *Mapper) TestPathFor(namespace string) (string, error) {
	segments, err := m.InsertPivot(Split(namespace))
	if err != nil {
		return "", err
	}
	return joinPath(segments, m.cfg.Extension), nil
}

// joinPath applies the file-system naming convention: "/" separators,
// underscores for hyphens, extension appended.
func joinPath(segments []string, extension string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = strings.ReplaceAll(s, "-", "_")
	}
	return strings.Join(parts, "/") + extension
}
