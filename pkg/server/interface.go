/*
Package server implements msgpack IPC for address bar completion services.

The server package provides a minimal interface for incremental site
completion using msgpack serialization over stdin/stdout.

The protocol uses binary msgpack encoding and supports query updates,
history writes, a stats view and a health action: ranking, storage and
matching all live in their own packages.

# IPC

The server operates on an update model rather than request/response: every
incoming query message supersedes the one before it. The in-flight fetch for
the superseded query is cancelled and its results are never written to the
wire, so the client only ever sees the newest query's results.

A query update looks like:

	{"id": "q_014", "q": "wiki", "l": 24}

The server answers with the merged candidate set first:

	{"id": "q_014", "q": "wiki", "s": [{"u": "https://en.wikipedia.org/", "t": "Wikipedia", "b": true}], "c": 1, "t": 212}

followed by at most one inline completion message:

	{"id": "q_014", "q": "wiki", "w": "wikipedia.org", "f": true}

An empty "q" clears the address bar: the candidate message carries an empty
set and no completion message follows. A fetch failure degrades the same
way; errors never reach the client as errors.

Responses always echo the query under "q". The "id" field is echoed on a
best-effort basis: when updates race the superseding request, correlation by
"q" is authoritative.

# History Writes

The store is populated over the same channel. The shell reports committed
navigations and bookmark toggles via the action field:

	{"id": "w_031", "action": "record", "u": "https://en.wikipedia.org/", "title": "Wikipedia"}
	{"id": "w_032", "action": "bookmark", "u": "https://en.wikipedia.org/", "title": "Wikipedia"}
	{"id": "w_033", "action": "unbookmark", "u": "https://en.wikipedia.org/"}

Each write is acknowledged with an ok status or a QueryError. A "stats"
action returns the store totals:

	{"id": "s_001", "v": 1532, "b": 44}

# Message Types

QueryRequest carries a query update or, via the action field, a history
write, stats or health action. CandidatesResponse and CompletionResponse
are the two per-update outputs. QueryError reports malformed input with an
HTTP-ish code.
*/
package server

// QueryRequest - address bar update, history write or management action
type QueryRequest struct {
	ID     string `msgpack:"id"`
	Query  string `msgpack:"q"`
	Limit  int    `msgpack:"l,omitempty"`
	Action string `msgpack:"action,omitempty"` // "", "query", "record", "bookmark", "unbookmark", "stats", "health"

	// Write action payload
	URL   string `msgpack:"u,omitempty"`
	Title string `msgpack:"title,omitempty"`
}

// ResponseCandidate - minimal candidate site record
type ResponseCandidate struct {
	URL        string `msgpack:"u"`
	Title      string `msgpack:"t,omitempty"`
	Bookmarked bool   `msgpack:"b,omitempty"`
}

// CandidatesResponse - merged candidate set for one update
type CandidatesResponse struct {
	ID         string              `msgpack:"id"`
	Query      string              `msgpack:"q"`
	Candidates []ResponseCandidate `msgpack:"s"`
	Count      int                 `msgpack:"c"`
	TimeTaken  int64               `msgpack:"t"`
}

// CompletionResponse - at most one per update, after CandidatesResponse
type CompletionResponse struct {
	ID         string `msgpack:"id"`
	Query      string `msgpack:"q"`
	Completion string `msgpack:"w,omitempty"`
	Found      bool   `msgpack:"f"`
}

// StatusResponse - health, lifecycle and write acknowledgement signals
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// StatsResponse - store totals for a stats action
type StatsResponse struct {
	ID        string `msgpack:"id"`
	Visits    int64  `msgpack:"v"`
	Bookmarks int64  `msgpack:"b"`
}

// QueryError holds basic error information for malformed requests
type QueryError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
