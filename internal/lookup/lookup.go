// Package lookup defines the citation sources a reference is checked against.
package lookup

import (
	"context"
	"fmt"
)

// Source identifies where a citation came from.
type Source int

const (
	// Error marks a failed or skipped lookup.
	Error Source = iota
	// StructuredDB is the Semantic Scholar Graph API.
	StructuredDB
	// SearchEngine is the Google Scholar fallback.
	SearchEngine
)

var sourceNames = map[Source]string{
	Error:        "error",
	StructuredDB: "semantic_scholar",
	SearchEngine: "google_scholar",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// ParseSource is the inverse of Source.String.
func ParseSource(name string) (Source, error) {
	for s, n := range sourceNames {
		if n == name {
			return s, nil
		}
	}
	return Error, fmt.Errorf("unknown source %q", name)
}

// MarshalText encodes the source by name.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a source name.
func (s *Source) UnmarshalText(b []byte) error {
	parsed, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Result is the outcome of a single lookup. Citation is meaningful only when
// Found is true.
type Result struct {
	Citation string
	Found    bool
	Source   Source
}

// Hit returns a found result.
func Hit(citation string, source Source) Result {
	return Result{Citation: citation, Found: true, Source: source}
}

// Miss returns an absent result.
func Miss() Result {
	return Result{Source: Error}
}

// Lookup queries one citation source. Implementations absorb every failure
// into a Miss; they never return errors.
type Lookup interface {
	Lookup(ctx context.Context, query string) Result
}
