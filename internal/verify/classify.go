package verify

import "sort"

// DefaultThreshold is the distance above which a match is flagged.
const DefaultThreshold = 30

// Report is the partition of a run's records handed to the reporting layer.
type Report struct {
	Threshold int      `json:"threshold"`
	NoYear    []Record `json:"no_year"`
	NotFound  []Record `json:"not_found"`
	// Evaluated is sorted by descending distance, worst match first.
	Evaluated []Record `json:"evaluated"`
	Flagged   []Record `json:"flagged"`
}

// Classify partitions records. NoYear, NotFound and Evaluated are disjoint and
// together hold every record; Flagged is the subset of Evaluated whose
// distance exceeds threshold.
func Classify(records []Record, threshold int) Report {
	rep := Report{
		Threshold: threshold,
		NoYear:    []Record{},
		NotFound:  []Record{},
		Evaluated: []Record{},
		Flagged:   []Record{},
	}

	for _, r := range records {
		switch r.Outcome {
		case NoYear:
			rep.NoYear = append(rep.NoYear, r)
		case NotFound:
			rep.NotFound = append(rep.NotFound, r)
		default:
			rep.Evaluated = append(rep.Evaluated, r)
		}
	}

	sort.SliceStable(rep.Evaluated, func(i, j int) bool {
		return rep.Evaluated[i].Distance > rep.Evaluated[j].Distance
	})

	for _, r := range rep.Evaluated {
		if r.Exceeds(threshold) {
			rep.Flagged = append(rep.Flagged, r)
		}
	}

	return rep
}

// Total returns the number of records across the disjoint partitions.
func (r Report) Total() int {
	return len(r.NoYear) + len(r.NotFound) + len(r.Evaluated)
}
