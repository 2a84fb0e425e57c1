package common

import "github.com/samber/lo"

// MergeFirstSeen merges two ordered id lists into one list without duplicates.
//
// For every element of a, the not-yet-seen elements of b are emitted first and
// then the a element itself if unseen. Since b is exhausted on the first step the
// result is b followed by the unseen remainder of a.
//
// An empty a returns the de-duplicated b. This deliberately departs from the
// plain nested iteration, which never visits b and would yield an empty list.
func MergeFirstSeen[T comparable](a, b []T) []T {
	if len(a) == 0 {
		return lo.Uniq(b)
	}

	seen := make(map[T]struct{}, len(a)+len(b))
	merged := make([]T, 0, len(a)+len(b))
	add := func(v T) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		merged = append(merged, v)
	}

	for _, id := range a {
		for _, id2 := range b {
			add(id2)
		}
		add(id)
	}
	return merged
}
