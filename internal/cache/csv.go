// Package cache persists a document's verification records as CSV so later
// runs can skip the lookup stage.
package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matsen/citecheck/internal/lookup"
	"github.com/matsen/citecheck/internal/verify"
)

var (
	// ErrNotCached indicates there is no cache file for the document.
	ErrNotCached = errors.New("no cached results")

	// ErrInvalidCache indicates the cache file cannot be used and the lookups
	// must be recomputed.
	ErrInvalidCache = errors.New("invalid results cache")
)

// Columns is the exact header of a cache file.
var Columns = []string{"StudentRef", "Source", "Citation", "EditDistance"}

// Sentinel values of the EditDistance column.
const (
	NoYearValue   = "NO_YEAR"
	NotFoundValue = "NOT_FOUND"

	// Numeric sentinels written by older versions of the checker.
	legacyNoYear   = 999998
	legacyNotFound = 999999
)

// Path returns the cache file for pdfPath in cacheDir, named after the
// document's stem.
func Path(cacheDir, pdfPath string) string {
	base := filepath.Base(pdfPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(cacheDir, stem+".csv")
}

// Load reads cached records. It returns ErrNotCached when the file does not
// exist and ErrInvalidCache when a required column is missing or a row cannot
// be decoded.
func Load(path string) ([]verify.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("opening cache file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty file", ErrInvalidCache)
		}
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidCache, err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidCache, col)
		}
	}

	var records []verify.Record
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCache, line, err)
		}

		field := func(col string) string {
			if i := idx[col]; i < len(row) {
				return row[i]
			}
			return ""
		}

		rec, err := decodeRow(field("StudentRef"), field("Source"), field("Citation"), field("EditDistance"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCache, line, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func decodeRow(ref, source, citation, distance string) (verify.Record, error) {
	rec := verify.Record{StudentRef: ref, Citation: citation}

	src, err := lookup.ParseSource(strings.TrimSpace(source))
	if err != nil {
		return rec, err
	}
	rec.Source = src

	distance = strings.TrimSpace(distance)
	switch distance {
	case NoYearValue:
		rec.Outcome = verify.NoYear
		return rec, nil
	case NotFoundValue:
		rec.Outcome = verify.NotFound
		return rec, nil
	}

	n, err := strconv.Atoi(distance)
	if err != nil {
		return rec, fmt.Errorf("EditDistance %q is not a number", distance)
	}
	switch {
	case n == legacyNoYear:
		rec.Outcome = verify.NoYear
	case n == legacyNotFound:
		rec.Outcome = verify.NotFound
	case n < 0:
		return rec, fmt.Errorf("negative EditDistance %d", n)
	default:
		rec.Outcome = verify.Evaluated
		rec.Distance = n
	}
	if rec.Outcome != verify.Evaluated {
		rec.Citation = ""
	}
	return rec, nil
}

// Save writes records to path, replacing any existing file. The parent
// directory is created if needed.
func Save(path string, records []verify.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, rec := range records {
		row := []string{rec.StudentRef, rec.Source.String(), rec.Citation, distanceValue(rec)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing cache file: %w", err)
	}

	return f.Close()
}

func distanceValue(rec verify.Record) string {
	switch rec.Outcome {
	case verify.NoYear:
		return NoYearValue
	case verify.NotFound:
		return NotFoundValue
	default:
		return strconv.Itoa(rec.Distance)
	}
}
