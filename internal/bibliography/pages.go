// Package bibliography locates the references section of a document and
// splits it into individual reference strings.
package bibliography

import (
	"fmt"
	"strconv"
	"strings"
)

// Pages is the read-only view of a document the package needs.
// Page numbers start at 1.
type Pages interface {
	NumPages() int
	// PageText returns the page's plain text.
	PageText(n int) (string, error)
	// LayoutText returns the page's text with indentation and blank lines
	// approximating the visual layout.
	LayoutText(n int) (string, error)
}

// PageRange is an ordered, inclusive list of page numbers.
type PageRange []int

// NewPageRange returns the pages start..end inclusive. An inverted range is empty.
func NewPageRange(start, end int) PageRange {
	if end < start {
		return PageRange{}
	}
	r := make(PageRange, 0, end-start+1)
	for p := start; p <= end; p++ {
		r = append(r, p)
	}
	return r
}

// String renders the range as "START-END" (or a single page number).
func (r PageRange) String() string {
	switch len(r) {
	case 0:
		return ""
	case 1:
		return strconv.Itoa(r[0])
	default:
		return fmt.Sprintf("%d-%d", r[0], r[len(r)-1])
	}
}

// ParsePageRange parses "23-25" (inclusive) or a single page "23".
func ParsePageRange(s string) (PageRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty page range")
	}

	startStr, endStr, found := strings.Cut(s, "-")
	if !found {
		endStr = startStr
	}

	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: start is not a number", s)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: end is not a number", s)
	}
	if start < 1 {
		return nil, fmt.Errorf("invalid page range %q: pages start at 1", s)
	}
	if end < start {
		return nil, fmt.Errorf("invalid page range %q: end before start", s)
	}

	return NewPageRange(start, end), nil
}

// Validate checks that every page in r exists in a document of n pages.
func (r PageRange) Validate(n int) error {
	for _, p := range r {
		if p < 1 || p > n {
			return fmt.Errorf("page %d out of range (document has %d pages)", p, n)
		}
	}
	return nil
}
