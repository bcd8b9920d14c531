package server

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/omniserve/pkg/complete"
	"github.com/bastiangx/omniserve/pkg/config"
	"github.com/bastiangx/omniserve/pkg/history"
)

// fakeFetcher returns a fixed result for every query.
type fakeFetcher struct {
	result complete.Result
	err    error
}

func (f *fakeFetcher) Fetch(ctx context.Context, query string) (complete.Result, error) {
	return f.result, f.err
}

// staticDomains answers from a fixed map.
type staticDomains map[string]string

func (d staticDomains) Search(query string) (string, bool) {
	match, ok := d[query]
	return match, ok
}

// testConn wires a server to in-process pipes and starts it.
type testConn struct {
	enc *msgpack.Encoder
	dec *msgpack.Decoder
}

// skipEmptyWrites drops zero-length writes. io.Pipe blocks even empty
// writes until a reader arrives, but the decoder never reads zero bytes
// once a message is complete, so an empty trailing string field (e.g. an
// empty query) would deadlock the encoder against the server's response.
type skipEmptyWrites struct{ w io.Writer }

func (s skipEmptyWrites) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return s.w.Write(p)
}

// openWriteStore creates a migrated in-memory store for write action tests.
func openWriteStore(t *testing.T) history.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// An in-memory database exists per connection; keep the pool at one.
	db.SetMaxOpenConns(1)

	require.NoError(t, history.NewMigrationRunner(db).Run())
	store, err := history.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func startTestServer(t *testing.T, fetcher complete.Fetcher, store history.Store, domains complete.DomainSource) *testConn {
	t.Helper()

	cfg := config.DefaultConfig()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	srv := NewServerWithIO(fetcher, store, domains, cfg, reqR, respW)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	t.Cleanup(func() {
		reqW.Close()
		select {
		case err := <-done:
			assert.NoError(t, err, "server should exit cleanly on EOF")
		case <-time.After(2 * time.Second):
			t.Error("server did not stop after input closed")
		}
		respW.Close()
	})

	conn := &testConn{
		enc: msgpack.NewEncoder(skipEmptyWrites{reqW}),
		dec: msgpack.NewDecoder(respR),
	}

	ready := conn.read(t)
	require.Equal(t, "ready", ready["status"])

	return conn
}

// read decodes one response message into a generic map.
func (c *testConn) read(t *testing.T) map[string]interface{} {
	t.Helper()
	var msg map[string]interface{}
	require.NoError(t, c.dec.Decode(&msg))
	return msg
}

func (c *testConn) send(t *testing.T, req QueryRequest) {
	t.Helper()
	require.NoError(t, c.enc.Encode(req))
}

func TestServer_QueryUpdateRoundtrip(t *testing.T) {
	fetcher := &fakeFetcher{result: complete.Result{
		History: []complete.Candidate{
			{URL: "https://en.wikipedia.org/", Title: "Wikipedia"},
		},
		Bookmarks: []complete.Candidate{
			{URL: "https://wiki.example.com/", Title: "Company Wiki", Bookmarked: true},
		},
	}}
	conn := startTestServer(t, fetcher, nil, staticDomains{})

	conn.send(t, QueryRequest{ID: "q_001", Query: "https://en.wiki", Limit: 10})

	candidates := conn.read(t)
	assert.Equal(t, "q_001", candidates["id"])
	assert.Equal(t, "https://en.wiki", candidates["q"])
	assert.EqualValues(t, 2, candidates["c"])
	sites, ok := candidates["s"].([]interface{})
	require.True(t, ok, "candidate list missing: %v", candidates)
	require.Len(t, sites, 2)
	first, ok := sites[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "https://en.wikipedia.org/", first["u"])

	completion := conn.read(t)
	assert.Equal(t, "q_001", completion["id"])
	assert.Equal(t, "https://en.wiki", completion["q"])
	assert.Equal(t, "https://en.wikipedia.org", completion["w"])
	assert.Equal(t, true, completion["f"])
}

func TestServer_EmptyQueryClears(t *testing.T) {
	fetcher := &fakeFetcher{result: complete.Result{
		History: []complete.Candidate{{URL: "https://stale.com/", Title: "Stale"}},
	}}
	conn := startTestServer(t, fetcher, nil, staticDomains{})

	conn.send(t, QueryRequest{ID: "q_002", Query: ""})

	candidates := conn.read(t)
	assert.Equal(t, "q_002", candidates["id"])
	assert.Equal(t, "", candidates["q"])
	assert.EqualValues(t, 0, candidates["c"])

	// No completion message follows; a health probe answers next.
	conn.send(t, QueryRequest{ID: "h_001", Action: "health"})
	status := conn.read(t)
	assert.Equal(t, "h_001", status["id"])
	assert.Equal(t, "ok", status["status"])
}

func TestServer_DomainFallbackOnWire(t *testing.T) {
	fetcher := &fakeFetcher{result: complete.Result{}}
	conn := startTestServer(t, fetcher, nil, staticDomains{"git": "github.com"})

	conn.send(t, QueryRequest{ID: "q_003", Query: "git", Limit: 5})

	candidates := conn.read(t)
	assert.EqualValues(t, 0, candidates["c"])

	completion := conn.read(t)
	assert.Equal(t, "github.com", completion["w"])
	assert.Equal(t, true, completion["f"])
}

func TestServer_NoMatchReportsNotFound(t *testing.T) {
	fetcher := &fakeFetcher{result: complete.Result{}}
	conn := startTestServer(t, fetcher, nil, staticDomains{})

	conn.send(t, QueryRequest{ID: "q_004", Query: "zzz", Limit: 5})

	_ = conn.read(t) // empty candidate set
	completion := conn.read(t)
	assert.Equal(t, false, completion["f"])
	assert.NotContains(t, completion, "w")
}

func TestServer_LimitTruncatesCandidates(t *testing.T) {
	fetcher := &fakeFetcher{result: complete.Result{
		History: []complete.Candidate{
			{URL: "https://a.com/"},
			{URL: "https://b.com/"},
			{URL: "https://c.com/"},
		},
	}}
	conn := startTestServer(t, fetcher, nil, staticDomains{})

	conn.send(t, QueryRequest{ID: "q_005", Query: "c", Limit: 2})

	candidates := conn.read(t)
	assert.EqualValues(t, 2, candidates["c"])
	sites := candidates["s"].([]interface{})
	assert.Len(t, sites, 2)

	_ = conn.read(t) // completion message
}

func TestServer_QueryTooLongRejected(t *testing.T) {
	conn := startTestServer(t, &fakeFetcher{}, nil, staticDomains{})

	long := strings.Repeat("a", config.DefaultConfig().Server.MaxQuery+1)
	conn.send(t, QueryRequest{ID: "q_006", Query: long})

	errMsg := conn.read(t)
	assert.Equal(t, "q_006", errMsg["id"])
	assert.Contains(t, errMsg["e"], "maximum length")
	assert.EqualValues(t, 400, errMsg["c"])
}

func TestServer_ControlCharactersRejected(t *testing.T) {
	conn := startTestServer(t, &fakeFetcher{}, nil, staticDomains{})

	conn.send(t, QueryRequest{ID: "q_007", Query: "wiki\x00pedia"})

	errMsg := conn.read(t)
	assert.Contains(t, errMsg["e"], "control characters")
	assert.EqualValues(t, 400, errMsg["c"])
}

func TestServer_UnknownActionRejected(t *testing.T) {
	conn := startTestServer(t, &fakeFetcher{}, nil, staticDomains{})

	conn.send(t, QueryRequest{ID: "q_008", Action: "reboot"})

	errMsg := conn.read(t)
	assert.Contains(t, errMsg["e"], "Unknown action")
	assert.EqualValues(t, 400, errMsg["c"])
}

func TestServer_FetchErrorDegradesToEmpty(t *testing.T) {
	fetcher := &fakeFetcher{err: context.DeadlineExceeded}
	conn := startTestServer(t, fetcher, nil, staticDomains{"wiki": "wikipedia.org"})

	conn.send(t, QueryRequest{ID: "q_009", Query: "wiki"})

	candidates := conn.read(t)
	assert.EqualValues(t, 0, candidates["c"])

	// Failure suppresses the completion pass entirely, even the static
	// fallback; the next message on the wire answers the health probe.
	conn.send(t, QueryRequest{ID: "h_002", Action: "health"})
	status := conn.read(t)
	assert.Equal(t, "ok", status["status"])
}

func TestServer_RecordThenQueryServesVisit(t *testing.T) {
	store := openWriteStore(t)
	fetcher := history.NewFetcher(store, 10, 10)
	conn := startTestServer(t, fetcher, store, staticDomains{})

	conn.send(t, QueryRequest{ID: "w_001", Action: "record", URL: "https://en.wikipedia.org/", Title: "Wikipedia"})
	ack := conn.read(t)
	assert.Equal(t, "w_001", ack["id"])
	assert.Equal(t, "ok", ack["status"])

	conn.send(t, QueryRequest{ID: "q_010", Query: "wiki", Limit: 5})
	candidates := conn.read(t)
	assert.EqualValues(t, 1, candidates["c"])
	sites := candidates["s"].([]interface{})
	first := sites[0].(map[string]interface{})
	assert.Equal(t, "https://en.wikipedia.org/", first["u"])

	completion := conn.read(t)
	assert.Equal(t, "wikipedia.org", completion["w"])
	assert.Equal(t, true, completion["f"])
}

func TestServer_BookmarkLifecycleAndStats(t *testing.T) {
	store := openWriteStore(t)
	conn := startTestServer(t, &fakeFetcher{}, store, staticDomains{})

	conn.send(t, QueryRequest{ID: "w_010", Action: "record", URL: "https://a.com/", Title: "A"})
	assert.Equal(t, "ok", conn.read(t)["status"])
	conn.send(t, QueryRequest{ID: "w_011", Action: "bookmark", URL: "https://a.com/", Title: "A"})
	assert.Equal(t, "ok", conn.read(t)["status"])

	conn.send(t, QueryRequest{ID: "s_001", Action: "stats"})
	stats := conn.read(t)
	assert.Equal(t, "s_001", stats["id"])
	assert.EqualValues(t, 1, stats["v"])
	assert.EqualValues(t, 1, stats["b"])

	conn.send(t, QueryRequest{ID: "w_012", Action: "unbookmark", URL: "https://a.com/"})
	assert.Equal(t, "ok", conn.read(t)["status"])

	conn.send(t, QueryRequest{ID: "s_002", Action: "stats"})
	stats = conn.read(t)
	assert.EqualValues(t, 1, stats["v"])
	assert.EqualValues(t, 0, stats["b"])
}

func TestServer_UnbookmarkMissingReportsError(t *testing.T) {
	store := openWriteStore(t)
	conn := startTestServer(t, &fakeFetcher{}, store, staticDomains{})

	conn.send(t, QueryRequest{ID: "w_020", Action: "unbookmark", URL: "https://nope.com/"})
	errMsg := conn.read(t)
	assert.Contains(t, errMsg["e"], "History write failed")
	assert.EqualValues(t, 500, errMsg["c"])
}

func TestServer_WriteRequiresURL(t *testing.T) {
	store := openWriteStore(t)
	conn := startTestServer(t, &fakeFetcher{}, store, staticDomains{})

	conn.send(t, QueryRequest{ID: "w_021", Action: "record", Title: "no url"})
	errMsg := conn.read(t)
	assert.Contains(t, errMsg["e"], "Missing url")
	assert.EqualValues(t, 400, errMsg["c"])
}

func TestServer_WriteWithoutStoreRejected(t *testing.T) {
	conn := startTestServer(t, &fakeFetcher{}, nil, staticDomains{})

	conn.send(t, QueryRequest{ID: "w_022", Action: "record", URL: "https://a.com/"})
	errMsg := conn.read(t)
	assert.Contains(t, errMsg["e"], "No history store")
	assert.EqualValues(t, 503, errMsg["c"])
}

func TestCorrelate_SupersededDeliveryKeepsNoLimit(t *testing.T) {
	srv := NewServerWithIO(&fakeFetcher{}, nil, staticDomains{}, config.DefaultConfig(), bytes.NewReader(nil), io.Discard)
	srv.lastID, srv.lastQuery, srv.lastLimit = "q_030", "wiki", 5
	srv.lastStart = time.Now()

	id, limit, _ := srv.correlate("wiki")
	assert.Equal(t, "q_030", id)
	assert.Equal(t, 5, limit)

	// A delivery for a query that is no longer current must not inherit
	// the newer request's id or its truncation limit.
	id, limit, took := srv.correlate("wik")
	assert.Equal(t, "", id)
	assert.Equal(t, 0, limit)
	assert.EqualValues(t, 0, took)
}
