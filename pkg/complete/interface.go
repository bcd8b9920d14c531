// Package complete is the core, driving query sequencing, candidate merging and the inline completion match.
package complete

import "context"

// Candidate is a site record eligible for display or completion matching.
// Identity for merging is the URL alone; title and the bookmark flag are payload.
type Candidate struct {
	URL        string
	Title      string
	Bookmarked bool
}

// Result carries one fetch worth of ranked candidates, history and
// bookmarks kept apart so the merger can apply its precedence rule.
type Result struct {
	History   []Candidate
	Bookmarks []Candidate
}

// Fetcher retrieves ranked candidate sites for a query filter.
// Implementations should react to ctx cancellation, but the controller does
// not depend on them doing so: stale results are discarded at delivery time
// by the generation check either way.
type Fetcher interface {
	Fetch(ctx context.Context, query string) (Result, error)
}

// Sink receives the outcome of each query update, tagged with the query it
// belongs to. OnCandidates fires exactly once per update; OnCompletion fires
// at most once, always after OnCandidates of the same update, with ok false
// when no inline completion was found. Deliveries are serialized by the
// controller, so implementations never see two updates at once.
//
// Callbacks run inside the controller's delivery section and must not call
// back into SetQuery.
type Sink interface {
	OnCandidates(query string, candidates []Candidate)
	OnCompletion(query, completion string, ok bool)
}

// DomainSource is the fallback completion source consulted when no live
// candidate yields a match. The domains package implements it over the
// static popular-domain list.
type DomainSource interface {
	Search(query string) (string, bool)
}
