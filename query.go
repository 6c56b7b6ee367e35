package strata

import (
	"time"

	"github.com/stratadb/strata/search"
)

// SearchOptions shapes a cross-primitive search.
type SearchOptions = search.Options

// SearchResult is one ranked hit.
type SearchResult = search.Result

// Search runs a keyword, vector, or hybrid query across the current
// branch's spaces. Options narrow the corpus by space, primitive,
// collection, and time window; results come back best first with 1-based
// ranks.
func (db *DB) Search(query string, opts SearchOptions) ([]SearchResult, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	start := time.Now()
	spaces, err := db.branches.SpacesOf(db.CurrentBranch())
	if err != nil {
		err = translateError(err)
		db.metrics.RecordSearch(time.Since(start), err)
		return nil, err
	}
	results, err := search.Run(spaces, query, opts)
	if err != nil {
		err = validation("%v", err)
	}
	db.metrics.RecordSearch(time.Since(start), err)
	return results, err
}
