package match

// Levenshtein returns the unit-cost edit distance (insert, delete,
// substitute) between a and b, compared rune by rune.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i, ca := range ra {
		curr[0] = i + 1
		for j, cb := range rb {
			cost := 1
			if ca == cb {
				cost = 0
			}
			curr[j+1] = min(
				prev[j+1]+1, // deletion
				curr[j]+1,   // insertion
				prev[j]+cost,
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
