package bibliography

import (
	"errors"
	"fmt"
	"strings"
)

// ErrReferencesNotFound is returned when no page starts with a references heading.
var ErrReferencesNotFound = errors.New("could not find a page starting with a references heading")

const (
	// DefaultStartHeading marks the first page of the bibliography.
	DefaultStartHeading = "references"
	// DefaultEndHeading marks the first page after the bibliography.
	DefaultEndHeading = "appendix"
)

// Locator finds the pages holding the bibliography by looking at the first
// line of each page.
type Locator struct {
	startHeadings []string
	endHeadings   []string
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithStartHeadings replaces the headings that open the references section.
func WithStartHeadings(headings ...string) LocatorOption {
	return func(l *Locator) {
		l.startHeadings = lowerAll(headings)
	}
}

// WithEndHeadings replaces the headings that close the references section.
func WithEndHeadings(headings ...string) LocatorOption {
	return func(l *Locator) {
		l.endHeadings = lowerAll(headings)
	}
}

// NewLocator creates a Locator using "references" and "appendix" by default.
func NewLocator(opts ...LocatorOption) *Locator {
	l := &Locator{
		startHeadings: []string{DefaultStartHeading},
		endHeadings:   []string{DefaultEndHeading},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate returns the page range of the bibliography.
//
// The start page is the first page whose first non-empty line begins with a
// start heading. The range ends on the page before the next page whose first
// line begins with an end heading, or on the last page. Pages whose text
// cannot be extracted are treated as having no heading.
func (l *Locator) Locate(doc Pages) (PageRange, error) {
	n := doc.NumPages()

	start := 0
	for p := 1; p <= n; p++ {
		if hasPrefixAny(firstLine(doc, p), l.startHeadings) {
			start = p
			break
		}
	}
	if start == 0 {
		return nil, fmt.Errorf("%w (searched %d pages; pass an explicit page range instead)", ErrReferencesNotFound, n)
	}

	end := n
	for p := start + 1; p <= n; p++ {
		if hasPrefixAny(firstLine(doc, p), l.endHeadings) {
			end = p - 1
			break
		}
	}

	return NewPageRange(start, end), nil
}

// firstLine returns the first non-empty line of page p, trimmed and lowercased.
func firstLine(doc Pages, p int) string {
	text, err := doc.PageText(p)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return strings.ToLower(line)
		}
	}
	return ""
}

func hasPrefixAny(s string, prefixes []string) bool {
	if s == "" {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func lowerAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
