// Package pdf extracts per-page text from PDF files.
package pdf

import (
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// ErrPageOutOfRange is returned when a page number is outside the document.
var ErrPageOutOfRange = errors.New("page out of range")

// Document is an open PDF. Pages are numbered from 1.
type Document struct {
	file *os.File
	r    *pdf.Reader
	path string
}

// Open opens the PDF at path. The caller must Close the document.
func Open(path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("PDF not found: %s", path)
		}
		return nil, fmt.Errorf("checking PDF: %w", err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	return &Document{file: f, r: r, path: path}, nil
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.file.Close()
}

// Path returns the path the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// NumPages returns the number of pages.
func (d *Document) NumPages() int {
	return d.r.NumPage()
}

// PageText returns the plain text of page n in content-stream order.
// A page without content yields an empty string.
func (d *Document) PageText(n int) (text string, err error) {
	page, err := d.page(n)
	if err != nil || page.V.IsNull() {
		return "", err
	}

	defer recoverExtraction(n, &err)
	return page.GetPlainText(nil)
}

// LayoutText returns the text of page n with its visual layout approximated:
// one line per text row, top to bottom, left indentation rendered as spaces
// and larger vertical gaps rendered as blank lines.
//
// When the page carries no usable position data the plain text is returned.
func (d *Document) LayoutText(n int) (text string, err error) {
	page, err := d.page(n)
	if err != nil || page.V.IsNull() {
		return "", err
	}

	defer recoverExtraction(n, &err)

	rows, err := page.GetTextByRow()
	if err != nil {
		return "", fmt.Errorf("reading rows of page %d: %w", n, err)
	}

	lines := rowsToLines(rows)
	if !hasPositions(lines) {
		return page.GetPlainText(nil)
	}
	return renderLayout(lines), nil
}

func (d *Document) page(n int) (pdf.Page, error) {
	if n < 1 || n > d.r.NumPage() {
		return pdf.Page{}, fmt.Errorf("%w: %d (document has %d pages)", ErrPageOutOfRange, n, d.r.NumPage())
	}
	return d.r.Page(n), nil
}

// recoverExtraction turns a panic inside the PDF library (malformed fonts and
// content streams trigger these) into an error for that page.
func recoverExtraction(n int, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("extracting text from page %d: %v", n, r)
	}
}

// rowsToLines converts the library's rows into the package's line model.
func rowsToLines(rows pdf.Rows) []textLine {
	lines := make([]textLine, 0, len(rows))
	for _, row := range rows {
		if row == nil || len(row.Content) == 0 {
			continue
		}
		line := textLine{Y: float64(row.Position)}
		for _, t := range row.Content {
			if t.S == "" {
				continue
			}
			line.Runs = append(line.Runs, textRun{
				X:        t.X,
				W:        t.W,
				FontSize: t.FontSize,
				S:        t.S,
			})
		}
		if len(line.Runs) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}
