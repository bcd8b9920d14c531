package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bastiangx/omniserve/internal/utils"
	"github.com/bastiangx/omniserve/pkg/complete"
	"github.com/bastiangx/omniserve/pkg/config"
	"github.com/bastiangx/omniserve/pkg/history"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles the IPC for site completions. It owns its controller and
// acts as the controller's sink, translating deliveries into wire messages.
type Server struct {
	controller *complete.Controller
	store      history.Store
	cfg        *config.Config
	dec        *msgpack.Decoder
	enc        *msgpack.Encoder

	mu        sync.Mutex
	lastID    string
	lastQuery string
	lastLimit int
	lastStart time.Time
}

// NewServer creates a new completion server using stdin/stdout for IPC.
// store receives the shell's write actions; nil disables them.
func NewServer(fetcher complete.Fetcher, store history.Store, domains complete.DomainSource, cfg *config.Config) *Server {
	return NewServerWithIO(fetcher, store, domains, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server on arbitrary streams, mainly for tests.
func NewServerWithIO(fetcher complete.Fetcher, store history.Store, domains complete.DomainSource, cfg *config.Config, r io.Reader, w io.Writer) *Server {
	s := &Server{
		store: store,
		cfg:   cfg,
		dec:   msgpack.NewDecoder(r),
		enc:   msgpack.NewEncoder(w),
	}
	timeout := time.Duration(cfg.History.FetchTimeoutMs) * time.Millisecond
	s.controller = complete.NewController(fetcher, s, domains, timeout)
	return s
}

// Start begins listening for IPC requests
func (s *Server) Start() error {
	log.Debug("Starting Server.")

	// Signal that the server is ready
	s.send(StatusResponse{Status: "ready"})

	for {
		var request QueryRequest
		if err := s.dec.Decode(&request); err != nil {
			if err == io.EOF {
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			return err
		}
		s.handleRequest(request)
	}
}

// handleRequest dispatches one decoded message
func (s *Server) handleRequest(request QueryRequest) {
	switch request.Action {
	case "", "query":
		s.handleQuery(request)
	case "record", "bookmark", "unbookmark":
		s.handleWrite(request)
	case "stats":
		s.handleStats(request)
	case "health":
		s.send(StatusResponse{ID: request.ID, Status: "ok"})
	default:
		s.sendError(request.ID, fmt.Sprintf("Unknown action: %s", request.Action), 400)
	}
}

// handleQuery validates an update and hands it to the controller. The
// controller cancels whatever was in flight; results come back through the
// sink methods below.
func (s *Server) handleQuery(request QueryRequest) {
	query := request.Query

	if len(query) > s.cfg.Server.MaxQuery {
		s.sendError(request.ID, fmt.Sprintf("Query exceeds maximum length of %d characters", s.cfg.Server.MaxQuery), 400)
		log.Debug("Query too long in request")
		return
	}

	if query != "" && utils.ContainsControl(query) {
		s.sendError(request.ID, "Query contains control characters", 400)
		log.Debug("Query has control characters in request")
		return
	}

	limit := request.Limit
	if limit < 1 || limit > s.cfg.Server.MaxResults {
		limit = s.cfg.Server.MaxResults
	}

	s.mu.Lock()
	s.lastID = request.ID
	s.lastQuery = query
	s.lastLimit = limit
	s.lastStart = time.Now()
	s.mu.Unlock()

	s.controller.SetQuery(query)
}

// handleWrite applies one history mutation. The shell reports committed
// navigations and bookmark toggles through these actions; the completion
// path itself never writes.
func (s *Server) handleWrite(request QueryRequest) {
	if s.store == nil {
		s.sendError(request.ID, "No history store attached", 503)
		return
	}
	if request.URL == "" {
		s.sendError(request.ID, "Missing url", 400)
		return
	}

	ctx := context.Background()
	var err error
	switch request.Action {
	case "record":
		err = s.store.AddVisit(ctx, request.URL, request.Title)
	case "bookmark":
		err = s.store.AddBookmark(ctx, request.URL, request.Title)
	case "unbookmark":
		err = s.store.RemoveBookmark(ctx, request.URL)
	}
	if err != nil {
		log.Errorf("History write (%s) failed: %v", request.Action, err)
		s.sendError(request.ID, fmt.Sprintf("History write failed: %v", err), 500)
		return
	}
	s.send(StatusResponse{ID: request.ID, Status: "ok"})
}

// handleStats answers a stats action with the store totals.
func (s *Server) handleStats(request QueryRequest) {
	if s.store == nil {
		s.sendError(request.ID, "No history store attached", 503)
		return
	}
	stats, err := s.store.GetStats(context.Background())
	if err != nil {
		s.sendError(request.ID, fmt.Sprintf("Stats query failed: %v", err), 500)
		return
	}
	s.send(StatsResponse{ID: request.ID, Visits: stats.TotalVisits, Bookmarks: stats.TotalBookmarks})
}

// OnCandidates implements complete.Sink.
func (s *Server) OnCandidates(query string, candidates []complete.Candidate) {
	s.mu.Lock()
	id, limit, took := s.correlate(query)
	s.mu.Unlock()

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]ResponseCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = ResponseCandidate{URL: c.URL, Title: c.Title, Bookmarked: c.Bookmarked}
	}

	s.send(CandidatesResponse{
		ID:         id,
		Query:      query,
		Candidates: out,
		Count:      len(out),
		TimeTaken:  took,
	})
}

// OnCompletion implements complete.Sink.
func (s *Server) OnCompletion(query, completion string, ok bool) {
	s.mu.Lock()
	id, _, _ := s.correlate(query)
	s.mu.Unlock()

	s.send(CompletionResponse{
		ID:         id,
		Query:      query,
		Completion: completion,
		Found:      ok,
	})
}

// correlate maps a delivered query back to its request id, limit and
// timing. Caller holds s.mu. A mismatch means a newer request arrived
// between the controller's gen check and this delivery; the query field
// still identifies the update, so the id is left empty and no limit is
// applied rather than borrowing the newer request's.
func (s *Server) correlate(query string) (id string, limit int, tookMicros int64) {
	if query != s.lastQuery {
		return "", 0, 0
	}
	return s.lastID, s.lastLimit, time.Since(s.lastStart).Microseconds()
}

// send marshals a response onto the wire. Sink deliveries are already
// serialized by the controller but error replies from the read loop are
// not, hence the lock.
func (s *Server) send(response interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.send(QueryError{ID: id, Error: message, Code: code})
}
