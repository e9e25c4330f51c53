package main

import (
	"testing"

	"github.com/matsen/citecheck/internal/lookup"
	"github.com/matsen/citecheck/internal/storage"
	"github.com/matsen/citecheck/internal/verify"
)

func TestWorstFirst(t *testing.T) {
	stored := func(pos int, outcome verify.Outcome, dist int) storage.StoredRecord {
		return storage.StoredRecord{Position: pos, Record: verify.Record{
			StudentRef: "ref", Source: lookup.StructuredDB, Outcome: outcome, Distance: dist,
		}}
	}
	in := []storage.StoredRecord{
		stored(0, verify.Evaluated, 5),
		stored(1, verify.NoYear, 0),
		stored(2, verify.Evaluated, 40),
		stored(3, verify.NotFound, 0),
		stored(4, verify.Evaluated, 40),
	}

	got := worstFirst(in)
	wantPositions := []int{3, 1, 2, 4, 0}
	for i, r := range got {
		if r.Position != wantPositions[i] {
			t.Errorf("got[%d].Position = %d, want %d", i, r.Position, wantPositions[i])
		}
	}
	if in[0].Position != 0 || in[3].Position != 3 {
		t.Error("worstFirst modified its input")
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(short) = %q", got)
	}
}
