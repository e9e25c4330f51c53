package verify

import (
	"context"

	"github.com/matsen/citecheck/internal/logger"
	"github.com/matsen/citecheck/internal/lookup"
	"github.com/matsen/citecheck/internal/similarity"
)

// Verifier resolves references against a primary source and an optional
// fallback, in that fixed order.
type Verifier struct {
	primary  lookup.Lookup
	fallback lookup.Lookup
	log      logger.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the verifier logger.
func WithLogger(l logger.Logger) Option {
	return func(v *Verifier) {
		v.log = l
	}
}

// New creates a Verifier. A nil fallback means references the primary source
// misses are reported as not found.
func New(primary, fallback lookup.Lookup, opts ...Option) *Verifier {
	v := &Verifier{
		primary:  primary,
		fallback: fallback,
		log:      logger.Nop{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify resolves a single reference. It never fails: lookup problems become
// a NotFound record.
func (v *Verifier) Verify(ctx context.Context, ref string) Record {
	if !similarity.HasYear(ref) {
		return Record{StudentRef: ref, Source: lookup.Error, Outcome: NoYear}
	}

	query := similarity.ExtractAPAFragments(ref).Query()
	if query == "" {
		query = ref
	}
	if v.primary != nil {
		if res := v.primary.Lookup(ctx, query); res.Found {
			return v.evaluated(ref, res)
		}
	}

	if v.fallback != nil {
		if res := v.fallback.Lookup(ctx, ref); res.Found {
			return v.evaluated(ref, res)
		}
	}

	return Record{StudentRef: ref, Source: lookup.Error, Outcome: NotFound}
}

func (v *Verifier) evaluated(ref string, res lookup.Result) Record {
	return Record{
		StudentRef: ref,
		Source:     res.Source,
		Citation:   res.Citation,
		Outcome:    Evaluated,
		Distance:   similarity.Distance(res.Citation, ref),
	}
}

// VerifyAll verifies refs sequentially in document order. progress, if not
// nil, is called after each record. On cancellation the records produced so
// far are returned together with the context error.
func (v *Verifier) VerifyAll(ctx context.Context, refs []string, progress func(i int, r Record)) ([]Record, error) {
	records := make([]Record, 0, len(refs))
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		r := v.Verify(ctx, ref)
		v.log.Debug("verified reference",
			logger.Int("index", i),
			logger.String("outcome", r.Outcome.String()),
			logger.String("source", r.Source.String()),
			logger.Int("distance", r.Distance))

		records = append(records, r)
		if progress != nil {
			progress(i, r)
		}
	}
	return records, nil
}
