package features

// LevenshteinDistance calculates the edit distance between two strings
// using a two-row dynamic programming table.
func LevenshteinDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// SimilarityRatio returns a normalized edit-distance ratio in [0,1],
// where 1 means identical strings.
func SimilarityRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(LevenshteinDistance(a, b))/float64(longest)
}

// MaxBrandSimilarity returns the best similarity ratio between the
// given candidates and any brand name.
func MaxBrandSimilarity(brands []string, candidates ...string) float64 {
	best := 0.0
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, brand := range brands {
			if r := SimilarityRatio(c, brand); r > best {
				best = r
			}
		}
	}
	return best
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
