package lookup

import (
	"context"

	"github.com/matsen/citecheck/internal/logger"
	"github.com/matsen/citecheck/internal/s2"
)

// PaperSearcher returns the most relevant paper for a free-text query.
// *s2.Client satisfies it.
type PaperSearcher interface {
	TopMatch(ctx context.Context, query string) (*s2.Paper, error)
}

// Structured looks references up in Semantic Scholar and formats the top hit
// as an APA citation.
type Structured struct {
	searcher PaperSearcher
	log      logger.Logger
}

// NewStructured wraps a paper searcher.
func NewStructured(searcher PaperSearcher, log logger.Logger) *Structured {
	if log == nil {
		log = logger.Nop{}
	}
	return &Structured{searcher: searcher, log: log}
}

// Lookup implements Lookup.
func (l *Structured) Lookup(ctx context.Context, query string) Result {
	paper, err := l.searcher.TopMatch(ctx, query)
	if err != nil {
		if s2.IsNotFound(err) {
			l.log.Debug("no Semantic Scholar match", logger.String("query", query))
		} else {
			l.log.Warn("Semantic Scholar lookup failed", logger.String("query", query), logger.Err(err))
		}
		return Miss()
	}
	return Hit(s2.FormatCitation(*paper), StructuredDB)
}
