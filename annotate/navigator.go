package annotate

import (
	"github.com/replprobe/replprobe/types"
)

// Navigator finds the next and previous distinct annotation boundary from
// an arbitrary cursor offset. Navigation is file-local: annotations in
// other files are never candidates.
//
// The scan walks position by position until the set of annotations covering
// the position differs from the set covering the cursor AND at least one
// annotation covers it. This means a cursor inside an annotation never
// lands back on the same region, and abutting regions each count as their
// own boundary.
type Navigator struct {
	store *Store
}

// NewNavigator creates a navigator over the given store.
func NewNavigator(store *Store) *Navigator {
	return &Navigator{store: store}
}

// NextBoundary returns the start offset of the next distinct annotated
// region after offset, or a NoProblemFoundError when none exists before
// the end of the annotated area.
func (n *Navigator) NextBoundary(file string, offset int) (int, error) {
	anns := n.store.Annotations(file)
	if len(anns) == 0 {
		return 0, NewNoProblemFoundError("next")
	}
	current := covering(anns, offset)
	limit := 0
	for _, a := range anns {
		if a.End > limit {
			limit = a.End
		}
	}
	for pos := offset + 1; pos < limit; pos++ {
		set := covering(anns, pos)
		if len(set) == 0 || sameSet(set, current) {
			continue
		}
		return regionStart(anns, set, current), nil
	}
	return 0, NewNoProblemFoundError("next")
}

// PreviousBoundary is the mirror scan toward the start of the file.
func (n *Navigator) PreviousBoundary(file string, offset int) (int, error) {
	anns := n.store.Annotations(file)
	if len(anns) == 0 {
		return 0, NewNoProblemFoundError("previous")
	}
	current := covering(anns, offset)
	for pos := offset - 1; pos >= 0; pos-- {
		set := covering(anns, pos)
		if len(set) == 0 || sameSet(set, current) {
			continue
		}
		return regionStart(anns, set, current), nil
	}
	return 0, NewNoProblemFoundError("previous")
}

// covering returns the indices of the annotations containing pos, in
// insertion order.
func covering(anns []types.ProblemAnnotation, pos int) []int {
	var set []int
	for i, a := range anns {
		if a.Contains(pos) {
			set = append(set, i)
		}
	}
	return set
}

func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// regionStart picks the start offset of the region entered at the
// boundary. Annotations newly covering the position are preferred over
// ones the cursor was already inside; among those the most recently
// inserted wins, matching point-lookup precedence.
func regionStart(anns []types.ProblemAnnotation, set, current []int) int {
	inCurrent := make(map[int]bool, len(current))
	for _, i := range current {
		inCurrent[i] = true
	}
	pick := -1
	for _, i := range set {
		if !inCurrent[i] {
			pick = i
		}
	}
	if pick < 0 {
		pick = set[len(set)-1]
	}
	return anns[pick].Start
}
