package search

// expandWeight is the score weight attached to derived query variants.
const expandWeight = 0.5

var suffixes = []string{"ing", "ies", "ed", "es", "s"}

// Expand turns query tokens into weighted terms: each original token at full
// weight plus light stemmed variants that broaden recall. Variants that
// collapse to an existing term or to fewer than three runes are dropped.
func Expand(tokens []string) []WeightedTerm {
	terms := make([]WeightedTerm, 0, len(tokens)*2)
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, WeightedTerm{Term: t, Weight: 1})
	}
	for _, t := range tokens {
		for _, v := range variants(t) {
			if seen[v] {
				continue
			}
			seen[v] = true
			terms = append(terms, WeightedTerm{Term: v, Weight: expandWeight})
		}
	}
	return terms
}

// Exact wraps tokens as full-weight terms without broadening.
func Exact(tokens []string) []WeightedTerm {
	terms := make([]WeightedTerm, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, WeightedTerm{Term: t, Weight: 1})
	}
	return terms
}

func variants(t string) []string {
	var out []string
	for _, suf := range suffixes {
		if len(t) > len(suf)+2 && t[len(t)-len(suf):] == suf {
			stem := t[:len(t)-len(suf)]
			out = append(out, stem)
			// "stories" strips to "stor"; also try "story".
			if suf == "ies" {
				out = append(out, stem+"y")
			}
			break
		}
	}
	// Pluralize short stems so "branch" also finds "branches".
	if len(t) >= 3 {
		out = append(out, t+"s")
	}
	return out
}
