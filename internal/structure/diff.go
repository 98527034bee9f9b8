package structure

// DiffPositions returns the 1-based positions at which two sequences differ.
// Positions are compared up to the shorter length; when lengths are unequal
// every position beyond the shorter sequence counts as a difference.
func DiffPositions(a, b string) []int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	diffs := []int{}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			diffs = append(diffs, i+1)
		}
	}

	if len(a) != len(b) {
		longer := len(a)
		if len(b) > longer {
			longer = len(b)
		}
		for i := n + 1; i <= longer; i++ {
			diffs = append(diffs, i)
		}
	}

	return diffs
}
