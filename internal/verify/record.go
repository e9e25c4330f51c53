// Package verify checks each reference against the citation sources and
// partitions the results for reporting.
package verify

import (
	"fmt"
	"math"

	"github.com/matsen/citecheck/internal/lookup"
)

// Outcome tags how a reference was resolved.
type Outcome int

const (
	// Evaluated means a citation was found and Distance is meaningful.
	Evaluated Outcome = iota
	// NoYear means the reference has no 4-digit year and was never looked up.
	NoYear
	// NotFound means no source returned a citation.
	NotFound
)

var outcomeNames = map[Outcome]string{
	Evaluated: "evaluated",
	NoYear:    "no_year",
	NotFound:  "not_found",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(b []byte) error {
	for k, v := range outcomeNames {
		if v == string(b) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", string(b))
}

// Record is the verification result for one reference.
type Record struct {
	StudentRef string        `json:"student_ref"`
	Source     lookup.Source `json:"source"`
	Citation   string        `json:"citation,omitempty"`
	Outcome    Outcome       `json:"outcome"`
	// Distance is set only for Evaluated records.
	Distance int `json:"distance"`
}

// Rank orders records by how suspicious they are: the distance for evaluated
// records, and values above any distance for the sentinel outcomes.
func (r Record) Rank() int {
	switch r.Outcome {
	case NoYear:
		return math.MaxInt - 1
	case NotFound:
		return math.MaxInt
	default:
		return r.Distance
	}
}

// Exceeds reports whether an evaluated record is above the flagging threshold.
func (r Record) Exceeds(threshold int) bool {
	return r.Outcome == Evaluated && r.Distance > threshold
}
