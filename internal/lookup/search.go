package lookup

import (
	"context"
	"errors"

	"github.com/matsen/citecheck/internal/logger"
	"github.com/matsen/citecheck/internal/scholar"
)

// Citer returns a formatted citation for a search query.
// *scholar.Session satisfies it.
type Citer interface {
	Cite(ctx context.Context, query string) (string, error)
}

// Search looks references up through a search engine session.
type Search struct {
	citer Citer
	log   logger.Logger
}

// NewSearch wraps a citer.
func NewSearch(citer Citer, log logger.Logger) *Search {
	if log == nil {
		log = logger.Nop{}
	}
	return &Search{citer: citer, log: log}
}

// Lookup implements Lookup.
func (l *Search) Lookup(ctx context.Context, query string) Result {
	citation, err := l.citer.Cite(ctx, query)
	if err != nil {
		if errors.Is(err, scholar.ErrNoResults) {
			l.log.Debug("no Google Scholar result", logger.String("query", query))
		} else {
			l.log.Warn("Google Scholar lookup failed", logger.String("query", query), logger.Err(err))
		}
		return Miss()
	}
	if citation == "" {
		return Miss()
	}
	return Hit(citation, SearchEngine)
}
