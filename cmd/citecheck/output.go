package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/matsen/citecheck/internal/storage"
	"github.com/matsen/citecheck/internal/verify"
)

// Constants for output formatting.
const (
	DefaultHistoryLimit = 20 // Default limit for history listings

	RefMaxLen     = 70 // Reference text in tables
	TextWrapWidth = 72 // Wrap width for reference lists
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Key    string `json:"key,omitempty"`
	Value  string `json:"value,omitempty"`
	Path   string `json:"path,omitempty"`
}

// printRecordsHuman prints stored records one per block, worst first as given.
func printRecordsHuman(w io.Writer, records []storage.StoredRecord) {
	for i, r := range records {
		fmt.Fprintf(w, "%d. [%s] %s\n", i+1, distanceLabel(r.Record), r.Document)
		fmt.Fprintf(w, "   %s\n", wrapText(r.StudentRef, TextWrapWidth, "   "))
		if r.Citation != "" {
			fmt.Fprintf(w, "   -> %s\n", wrapText(r.Citation, TextWrapWidth, "      "))
		}
		fmt.Fprintln(w)
	}
}

// distanceLabel renders a record's distance, or its outcome for sentinels.
func distanceLabel(r verify.Record) string {
	if r.Outcome != verify.Evaluated {
		return r.Outcome.String()
	}
	return fmt.Sprintf("%d", r.Distance)
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	words := strings.Fields(text)
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}

// formatTimestamp renders a run time in local time with its age.
func formatTimestamp(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04"), humanize.Time(t))
}
