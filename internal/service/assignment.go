package service

// NewlyAssigned returns the members of next that are absent from prev, in
// next's order, with duplicates collapsed. A nil next means the assignment
// field was not part of the mutation, so nothing is newly assigned; the same
// applies to clearing an assignment (next empty). Single-valued assignment is
// handled by the caller passing a slice of at most one element.
func NewlyAssigned(prev, next []int64) []int64 {
	if next == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(prev))
	for _, id := range prev {
		seen[id] = struct{}{}
	}

	var delta []int64
	for _, id := range next {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		delta = append(delta, id)
	}
	return delta
}
