package similarity

import (
	"math"

	"github.com/pmezard/go-difflib/difflib"
)

// Distance returns the length-scaled dissimilarity between two citations.
//
// Both strings are reduced to their APA author+title fragment (or kept whole
// when no fragment is found), normalized, and compared with a
// Ratcliff/Obershelp sequence ratio. The result is
//
//	round(max(len(a), len(b)) * (1 - ratio))
//
// counted in characters, so a fixed integer threshold means the same thing for
// short and long references. Identical inputs score 0.
func Distance(a, b string) int {
	fa := scoringText(a)
	fb := scoringText(b)

	la := len([]rune(fa))
	lb := len([]rune(fb))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}

	return int(math.Round(float64(longest) * (1 - Ratio(fa, fb))))
}

// Ratio returns the sequence-matcher similarity of a and b in [0, 1].
//
// The matcher's block search is order dependent, so the better of the two
// argument orders is used; this keeps Ratio (and Distance) symmetric.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	ab := difflib.NewMatcher(runes(a), runes(b)).Ratio()
	ba := difflib.NewMatcher(runes(b), runes(a)).Ratio()
	return math.Max(ab, ba)
}

// scoringText reduces a citation to the normalized text used for scoring.
func scoringText(s string) string {
	if q := ExtractAPAFragments(s).Query(); q != "" {
		return Normalize(q)
	}
	return Normalize(s)
}

// runes splits s into one sequence element per character.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
