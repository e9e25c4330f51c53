package pdf

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// glyphWidthRatio approximates an average glyph width as a fraction of the
	// font size; used to convert horizontal offsets into space counts.
	glyphWidthRatio = 0.5

	// wordGapRatio is the horizontal gap (relative to font size) above which two
	// runs on the same row are separated by a space.
	wordGapRatio = 0.15

	// paragraphGapRatio is the vertical gap (relative to the typical line
	// spacing) above which a blank line is emitted.
	paragraphGapRatio = 1.6

	defaultFontSize = 10.0
)

// textRun is a positioned piece of text on a row.
type textRun struct {
	X        float64
	W        float64
	FontSize float64
	S        string
}

// textLine is one visual row of text. Y grows upwards (PDF user space).
type textLine struct {
	Y    float64
	Runs []textRun
}

func hasPositions(lines []textLine) bool {
	for _, l := range lines {
		for _, r := range l.Runs {
			if r.X > 0 || l.Y > 0 {
				return true
			}
		}
	}
	return false
}

// renderLayout renders lines top to bottom, indenting each line relative to
// the leftmost text on the page.
func renderLayout(lines []textLine) string {
	if len(lines) == 0 {
		return ""
	}

	sorted := make([]textLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	left := math.Inf(1)
	for i := range sorted {
		sort.SliceStable(sorted[i].Runs, func(a, b int) bool { return sorted[i].Runs[a].X < sorted[i].Runs[b].X })
		if x := sorted[i].Runs[0].X; x < left {
			left = x
		}
	}

	spacing := typicalLineSpacing(sorted)

	var b strings.Builder
	for i, line := range sorted {
		if i > 0 {
			b.WriteByte('\n')
			if spacing > 0 && sorted[i-1].Y-line.Y > spacing*paragraphGapRatio {
				b.WriteByte('\n')
			}
		}

		glyph := fontSize(line.Runs[0]) * glyphWidthRatio
		indent := int(math.Round((line.Runs[0].X - left) / glyph))
		if indent > 0 {
			b.WriteString(strings.Repeat(" ", indent))
		}
		b.WriteString(strings.TrimRight(joinRuns(line.Runs), " \t"))
	}
	return b.String()
}

// joinRuns concatenates the runs of a row, inserting a space wherever the
// horizontal gap between runs is wider than a word gap.
func joinRuns(runs []textRun) string {
	var b strings.Builder
	prevEnd := math.NaN()
	for _, r := range runs {
		if !math.IsNaN(prevEnd) && r.X-prevEnd > fontSize(r)*wordGapRatio {
			if !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(r.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(r.S)
		prevEnd = r.X + runWidth(r)
	}
	return b.String()
}

// typicalLineSpacing returns the median vertical distance between
// consecutive rows, or 0 when there are fewer than two rows.
func typicalLineSpacing(sorted []textLine) float64 {
	gaps := make([]float64, 0, len(sorted))
	for i := 1; i < len(sorted); i++ {
		if g := sorted[i-1].Y - sorted[i].Y; g > 0 {
			gaps = append(gaps, g)
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	sort.Float64s(gaps)
	return gaps[len(gaps)/2]
}

func fontSize(r textRun) float64 {
	if r.FontSize > 0 {
		return r.FontSize
	}
	return defaultFontSize
}

func runWidth(r textRun) float64 {
	if r.W > 0 {
		return r.W
	}
	return fontSize(r) * glyphWidthRatio * float64(utf8.RuneCountInString(r.S))
}
