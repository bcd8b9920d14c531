package history

import (
	"context"
	"fmt"

	"github.com/bastiangx/omniserve/pkg/complete"
)

// Fetcher adapts a Store to the controller's complete.Fetcher interface.
// Each fetch runs the ranked history query and the bookmark query for the
// same filter; both honor ctx, so a cancelled query aborts mid-flight
// instead of finishing a dead generation's work.
type Fetcher struct {
	store        Store
	maxHistory   int
	maxBookmarks int
}

// NewFetcher creates a Fetcher with per-list row limits.
func NewFetcher(store Store, maxHistory, maxBookmarks int) *Fetcher {
	return &Fetcher{
		store:        store,
		maxHistory:   maxHistory,
		maxBookmarks: maxBookmarks,
	}
}

// Fetch retrieves ranked history and bookmark candidates for query.
func (f *Fetcher) Fetch(ctx context.Context, query string) (complete.Result, error) {
	hist, err := f.store.TopSites(ctx, query, f.maxHistory)
	if err != nil {
		return complete.Result{}, fmt.Errorf("history query: %w", err)
	}

	marks, err := f.store.Bookmarks(ctx, query, f.maxBookmarks)
	if err != nil {
		return complete.Result{}, fmt.Errorf("bookmark query: %w", err)
	}

	return complete.Result{
		History:   toCandidates(hist, false),
		Bookmarks: toCandidates(marks, true),
	}, nil
}

func toCandidates(sites []Site, bookmarked bool) []complete.Candidate {
	out := make([]complete.Candidate, len(sites))
	for i, s := range sites {
		out[i] = complete.Candidate{
			URL:        s.URL,
			Title:      s.Title,
			Bookmarked: bookmarked,
		}
	}
	return out
}
