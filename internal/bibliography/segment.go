package bibliography

import (
	"strings"
	"unicode"

	"github.com/matsen/citecheck/internal/logger"
)

// DefaultContinuationIndent is the number of leading whitespace characters
// that marks a line as the continuation of the previous entry. It is tuned to
// hanging-indent bibliographies and is not universal across PDF producers.
const DefaultContinuationIndent = 4

// Segmenter splits bibliography pages into one string per entry.
type Segmenter struct {
	indent int
	log    logger.Logger
}

// SegmenterOption configures a Segmenter.
type SegmenterOption func(*Segmenter)

// WithContinuationIndent sets the indentation width of continuation lines.
// Values below 1 are ignored.
func WithContinuationIndent(n int) SegmenterOption {
	return func(s *Segmenter) {
		if n > 0 {
			s.indent = n
		}
	}
}

// WithLogger sets the logger used to report unreadable pages.
func WithLogger(l logger.Logger) SegmenterOption {
	return func(s *Segmenter) {
		s.log = l
	}
}

// NewSegmenter creates a Segmenter with the default continuation indent.
func NewSegmenter(opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{
		indent: DefaultContinuationIndent,
		log:    logger.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment returns the entries found on the given pages, in document order.
// A page whose text cannot be extracted is skipped with a warning.
func (s *Segmenter) Segment(doc Pages, pages PageRange) []string {
	var refs []string
	for _, p := range pages {
		text, err := doc.LayoutText(p)
		if err != nil {
			s.log.Warn("skipping unreadable page", logger.Int("page", p), logger.Err(err))
			continue
		}
		found := s.SegmentText(text)
		s.log.Debug("segmented page", logger.Int("page", p), logger.Int("entries", len(found)))
		refs = append(refs, found...)
	}
	return refs
}

// SegmentText splits the text of a single page.
//
// The bibliography is assumed to be the last blank-line-delimited block on the
// page (running heads and headings come first). Trailing blocks that yield no
// entry, such as an indented page number, are passed over. Within the block a
// new entry starts at every line that is not indented by at least the
// continuation width; indented lines are joined to the entry above.
func (s *Segmenter) SegmentText(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRight(text, " \t\n")
	if text == "" {
		return nil
	}

	blocks := strings.Split(text, "\n\n")
	for i := len(blocks) - 1; i >= 0; i-- {
		if refs := s.splitBlock(blocks[i]); len(refs) > 0 {
			return refs
		}
	}
	return nil
}

// splitBlock splits one block into accepted entries.
func (s *Segmenter) splitBlock(block string) []string {
	var candidates []string
	var current strings.Builder
	for i, line := range strings.Split(block, "\n") {
		if i > 0 && leadingSpace(line) < s.indent {
			candidates = append(candidates, current.String())
			current.Reset()
		} else if i > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	candidates = append(candidates, current.String())

	var refs []string
	for _, c := range candidates {
		if c == "" || startsIndented(c) {
			continue
		}
		if ref := collapseSpace(c); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// leadingSpace counts the whitespace characters at the start of line.
func leadingSpace(line string) int {
	n := 0
	for _, r := range line {
		if !unicode.IsSpace(r) {
			break
		}
		n++
	}
	return n
}

// startsIndented reports whether a candidate looks like a continuation that
// leaked through (leading indentation or a bare newline).
func startsIndented(c string) bool {
	return strings.HasPrefix(c, "  ") || strings.HasPrefix(c, "\t") || strings.HasPrefix(c, "\n")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
