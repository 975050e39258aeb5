package snapshot

import "slices"

// SortedIDs is a query set of rsIDs in the order Scan consumes them.
//
// Scan makes a single forward pass over the snapshot, so the query set
// must be ascending to match a snapshot whose records are ascending.
// Build one with SortIDs unless the input is known to be sorted.
type SortedIDs struct {
	ids []uint64
}

// SortIDs returns the ids sorted ascending with duplicates removed.
// The input slice is not modified.
func SortIDs(ids []uint64) SortedIDs {
	c := slices.Clone(ids)
	slices.Sort(c)
	return SortedIDs{ids: slices.Compact(c)}
}

// AssumeSorted uses ids in the given order without sorting them.
// Ids that are out of order will not be found by Scan.
func AssumeSorted(ids []uint64) SortedIDs {
	return SortedIDs{ids: slices.Clone(ids)}
}

// Len returns the number of ids.
func (s SortedIDs) Len() int { return len(s.ids) }

// IDs returns the ids in scan order.
func (s SortedIDs) IDs() []uint64 { return slices.Clone(s.ids) }

// IsSorted reports whether the ids are strictly ascending.
func (s SortedIDs) IsSorted() bool {
	for i := 1; i < len(s.ids); i++ {
		if s.ids[i] <= s.ids[i-1] {
			return false
		}
	}
	return true
}
