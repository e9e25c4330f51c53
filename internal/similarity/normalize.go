// Package similarity normalizes citation strings and scores how far a
// candidate citation is from the one a student wrote.
package similarity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	// authorPrefixPattern captures everything before the first "(yyyy)".
	authorPrefixPattern = regexp.MustCompile(`^(.*?)\s*\(\d{4}\)`)

	// titlePattern captures the text after "(yyyy). " up to the next period
	// followed by whitespace (or the end of the string).
	titlePattern = regexp.MustCompile(`\(\d{4}\)\.\s*(.*?)\.(?:\s|$)`)

	// yearPattern matches a standalone 4-digit token.
	yearPattern = regexp.MustCompile(`\b\d{4}\b`)
)

var lower = cases.Lower(language.Und)

// Normalize canonicalizes citation text for comparison: compatibility fold,
// lowercase, drop punctuation and symbols, collapse whitespace, trim.
//
// Folding first makes PDF ligatures ("ﬁ") and typographic quotes compare equal
// to their plain forms.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = lower.String(text)

	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, text)

	return strings.Join(strings.Fields(stripped), " ")
}

// APAFragments holds the author prefix and title extracted from an
// APA-shaped citation. Either may be empty.
type APAFragments struct {
	Author string
	Title  string
}

// Query joins the non-empty fragments with a space. An empty result means
// the caller should fall back to the raw citation text.
func (f APAFragments) Query() string {
	parts := make([]string, 0, 2)
	if a := strings.TrimSpace(f.Author); a != "" {
		parts = append(parts, a)
	}
	if t := strings.TrimSpace(f.Title); t != "" {
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}

// ExtractAPAFragments pulls the author prefix and title out of text shaped
// like "Doe, J. (2019). Widgets and gadgets. Journal of Things.".
func ExtractAPAFragments(text string) APAFragments {
	var f APAFragments
	if m := authorPrefixPattern.FindStringSubmatch(text); m != nil {
		f.Author = strings.TrimSpace(m[1])
	}
	if m := titlePattern.FindStringSubmatch(text); m != nil {
		f.Title = strings.TrimSpace(m[1])
	}
	return f
}

// HasYear reports whether text contains a standalone 4-digit token.
func HasYear(text string) bool {
	return yearPattern.MatchString(text)
}
