package survey

// NextVersion returns the version number a new report should carry given the
// versions already persisted for the same owner: one past the maximum, or 1
// when none exist. Deriving this from a fresh read instead of a stored
// counter keeps the sequence correct even if rows were deleted and restored.
func NextVersion(versions []int) int {
	next := 1
	for _, v := range versions {
		if v >= next {
			next = v + 1
		}
	}
	return next
}
