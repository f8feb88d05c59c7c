package match

// Weights of the two components of Score.
const (
	JaccardWeight = 0.7
	EditWeight    = 0.3
)

// Score returns a confidence in [0, 1] that titles a and b name the same
// paper. It blends token-set Jaccard overlap with Levenshtein similarity of
// the normalized strings, favouring shared vocabulary over character noise.
//
// Score is symmetric, returns exactly 1 for titles that normalize to the
// same non-empty string, and 0 when both normalize to "".
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" && nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return JaccardWeight*Jaccard(na, nb) + EditWeight*EditSimilarity(na, nb)
}

// Matches reports whether Score(a, b) reaches threshold.
func Matches(a, b string, threshold float64) bool {
	return Score(a, b) >= threshold
}

// Jaccard returns |A∩B| / |A∪B| over the token sets of two normalized
// titles, or 0 when both sets are empty.
func Jaccard(na, nb string) float64 {
	ta, tb := Tokens(na), Tokens(nb)

	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// EditSimilarity returns 1 - lev(na, nb) / max(len(na), len(nb)), with
// lengths counted in runes. It is 0 when both strings are empty.
func EditSimilarity(na, nb string) float64 {
	la, lb := len([]rune(na)), len([]rune(nb))
	maxLen := max(la, lb)
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(Levenshtein(na, nb))/float64(maxLen)
}
