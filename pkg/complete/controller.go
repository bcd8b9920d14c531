package complete

import (
	"context"
	"sync"
	"time"

	"github.com/bastiangx/omniserve/internal/logger"
	"github.com/charmbracelet/log"
)

// Controller owns the current query string and keeps at most one fetch in
// flight. Every SetQuery cancels the previous fetch's context and bumps the
// generation counter; a fetch that completes for an older generation is
// discarded silently. The generation check, not fetcher cooperation, is what
// guarantees no stale delivery.
//
// All deliveries to the sink happen inside one mutex-guarded section, so a
// SetQuery and an in-flight completion can never race: cancellation is
// visible before any later delivery, and an earlier-generation delivery can
// never overwrite a newer one.
type Controller struct {
	fetcher Fetcher
	sink    Sink
	domains DomainSource
	timeout time.Duration

	mu     sync.Mutex
	query  string
	gen    uint64
	cancel context.CancelFunc

	log *log.Logger
}

// NewController wires the controller to its collaborators. domains may be
// nil, which disables the static fallback source. timeout bounds each fetch;
// zero preserves unbounded waiting.
func NewController(fetcher Fetcher, sink Sink, domains DomainSource, timeout time.Duration) *Controller {
	return &Controller{
		fetcher: fetcher,
		sink:    sink,
		domains: domains,
		timeout: timeout,
		log:     logger.New("complete"),
	}
}

// SetQuery replaces the current query. It is the only mutator exposed to the
// UI layer. An empty query cancels any in-flight fetch and emits an empty
// candidate list immediately, with no fetch and no completion. A non-empty
// query cancels the in-flight fetch and issues a new one asynchronously;
// SetQuery itself never blocks on the fetcher.
func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	gen := c.gen
	c.query = query

	if query == "" {
		c.log.Debug("query cleared")
		c.sink.OnCandidates(query, []Candidate{})
		c.mu.Unlock()
		return
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		c.fetch(ctx, gen, query)
		cancel()
	}()
}

// Query returns the current query string.
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Fetching reports whether a fetch is in flight.
func (c *Controller) Fetching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// fetch runs one generation's fetch and, if still current at completion,
// merges and delivers its results. A fetch error counts as an empty result
// for that generation: candidates are emitted empty and no completion
// follows. Nothing is ever surfaced as an error to the sink.
func (c *Controller) fetch(ctx context.Context, gen uint64, query string) {
	start := time.Now()
	res, err := c.fetcher.Fetch(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug("stale fetch discarded", "query", query, "gen", gen)
		return
	}
	c.cancel = nil

	if err != nil {
		c.log.Warn("fetch failed", "query", query, "err", err)
		c.sink.OnCandidates(query, []Candidate{})
		return
	}

	merged := MergeCandidates(res.History, res.Bookmarks)
	c.log.Debug("fetch done", "query", query, "candidates", len(merged), "took", time.Since(start))
	c.sink.OnCandidates(query, merged)

	completion, ok := c.completionFor(merged, query)
	c.sink.OnCompletion(query, completion, ok)
}

// completionFor searches the live candidates in order first, then the static
// domain fallback. At most one completion ever comes out of an update.
func (c *Controller) completionFor(candidates []Candidate, query string) (string, bool) {
	for _, cand := range candidates {
		if completion, ok := CompletionForURL(cand.URL, query); ok {
			return completion, true
		}
	}
	if c.domains != nil {
		return c.domains.Search(query)
	}
	return "", false
}
