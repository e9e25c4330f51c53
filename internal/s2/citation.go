package s2

import (
	"strconv"
	"strings"
	"unicode"
)

// Common name suffixes to keep with the last name.
var nameSuffixes = map[string]bool{
	"jr":   true,
	"jr.":  true,
	"sr":   true,
	"sr.":  true,
	"ii":   true,
	"iii":  true,
	"iv":   true,
	"phd":  true,
	"ph.d": true,
	"md":   true,
	"m.d":  true,
}

// FormatCitation renders a paper as an APA-style reference string:
//
//	Doe, J., & Roe, R. (2019). Title. Venue.
//
// A missing year renders as "n.d." and a missing venue is omitted.
func FormatCitation(p Paper) string {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if n := APAName(a.Name); n != "" {
			names = append(names, n)
		}
	}
	return formatAPA(names, p.Year, p.Title, p.Venue)
}

// formatAPA assembles the citation from already formatted author names.
func formatAPA(names []string, year int, title, venue string) string {
	var b strings.Builder

	if authors := joinAuthors(names); authors != "" {
		b.WriteString(authors)
		b.WriteByte(' ')
	}

	b.WriteByte('(')
	if year > 0 {
		b.WriteString(strconv.Itoa(year))
	} else {
		b.WriteString("n.d.")
	}
	b.WriteString(").")

	if title = strings.TrimSpace(title); title != "" {
		b.WriteByte(' ')
		b.WriteString(withPeriod(title))
	}
	if venue = strings.TrimSpace(venue); venue != "" {
		b.WriteByte(' ')
		b.WriteString(withPeriod(venue))
	}

	return b.String()
}

// joinAuthors joins names APA style: "A", "A, & B", "A, B, & C".
func joinAuthors(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", & " + names[len(names)-1]
	}
}

// APAName converts "John Michael Doe" to "Doe, J. M.". Names that already
// contain a comma are assumed to be in "Last, First" form and kept as-is.
func APAName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ",") {
		return name
	}
	first, last := splitAuthorName(name)
	if first == "" {
		return last
	}
	return last + ", " + initials(first)
}

// splitAuthorName splits a full name into first and last name.
// Handles common suffixes (Jr, Sr, II, III, IV, PhD, MD).
//
// Known limitations:
// - Multi-part surnames (von Neumann, van der Waals) split incorrectly
// - Non-Western name formats may not be handled correctly
func splitAuthorName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	}

	lastPart := strings.ToLower(parts[len(parts)-1])
	if nameSuffixes[lastPart] && len(parts) > 2 {
		last = parts[len(parts)-2] + " " + parts[len(parts)-1]
		first = strings.Join(parts[:len(parts)-2], " ")
	} else {
		last = parts[len(parts)-1]
		first = strings.Join(parts[:len(parts)-1], " ")
	}
	return first, last
}

// initials turns given names into "J. M." and hyphenated names into "J.-P.".
func initials(first string) string {
	var out []string
	for _, word := range strings.Fields(first) {
		var pieces []string
		for _, piece := range strings.Split(word, "-") {
			for _, r := range piece {
				if unicode.IsLetter(r) {
					pieces = append(pieces, string(unicode.ToUpper(r))+".")
					break
				}
			}
		}
		if len(pieces) > 0 {
			out = append(out, strings.Join(pieces, "-"))
		}
	}
	return strings.Join(out, " ")
}

func withPeriod(s string) string {
	switch s[len(s)-1] {
	case '.', '?', '!':
		return s
	}
	return s + "."
}
