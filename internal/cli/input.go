// Package cli handles cmd line input for DBG and testing the completion flow end to end
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bastiangx/omniserve/internal/utils"
	"github.com/bastiangx/omniserve/pkg/complete"
	"github.com/bastiangx/omniserve/pkg/history"
	"github.com/charmbracelet/log"
)

// InputHandler processes queries typed on stdin, driving the same
// controller the IPC server uses and printing candidates and the inline
// completion as they are delivered. It is the controller's sink.
type InputHandler struct {
	controller *complete.Controller
	store      history.Store
	maxLength  int
	limit      int
	resultWait time.Duration
	updated    chan struct{}
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(fetcher complete.Fetcher, store history.Store, domains complete.DomainSource, maxLength, limit int, resultWait, fetchTimeout time.Duration) *InputHandler {
	h := &InputHandler{
		store:      store,
		maxLength:  maxLength,
		limit:      limit,
		resultWait: resultWait,
		updated:    make(chan struct{}, 1),
	}
	h.controller = complete.NewController(fetcher, h, domains, fetchTimeout)
	return h
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin, and updates
// the controller's query with it. An empty line clears the query.
// Loop terminates if an error occurs while reading from stdin
func (h *InputHandler) Start() error {
	log.Print("OmniServe CLI [BETA]")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type a query and press Enter to see candidates (empty line clears, Ctrl+C to exit)")
	log.Print("store commands: :visit <url> [title]  :bookmark <url> [title]  :unbookmark <url>  :stats")

	for {
		fmt.Fprint(os.Stderr, "> ")
		query, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		query = strings.TrimRight(query, "\r\n")
		h.handleInput(query)
	}
}

// handleInput runs a single query update and waits for its delivery.
// The wait is bounded: a fetch failure emits no completion, so the loop
// falls back to the prompt after resultWait.
func (h *InputHandler) handleInput(query string) {
	if query == "" {
		h.controller.SetQuery("")
		log.Print("cleared")
		return
	}

	if strings.HasPrefix(query, ":") {
		if err := h.runCommand(query); err != nil {
			log.Errorf("%v", err)
		}
		return
	}

	if len(query) > h.maxLength {
		log.Errorf("Query too long: %s", query)
		return
	}

	if !utils.IsValidQuery(query) {
		log.Warnf("No results for query: '%s'", query)
		return
	}

	// Drain a leftover signal from an update that outlived its wait.
	select {
	case <-h.updated:
	default:
	}

	log.Debug("Processing update for", "query", query)
	start := time.Now()
	h.controller.SetQuery(query)

	select {
	case <-h.updated:
		log.Debugf("Took [ %v ] for query '%s'", time.Since(start), query)
	case <-time.After(h.resultWait):
		log.Warnf("Timed out waiting for results of '%s'", query)
	}
}

// runCommand executes one colon command against the history store, so the
// same session that drives queries can also populate and inspect the data
// it completes from.
func (h *InputHandler) runCommand(line string) error {
	if h.store == nil {
		return fmt.Errorf("no history store attached")
	}

	fields := strings.Fields(line)
	cmd := fields[0]
	ctx := context.Background()

	switch cmd {
	case ":stats":
		stats, err := h.store.GetStats(ctx)
		if err != nil {
			return err
		}
		log.Print(formatStats(stats))
		return nil

	case ":visit", ":bookmark":
		if len(fields) < 2 {
			return fmt.Errorf("usage: %s <url> [title]", cmd)
		}
		url := fields[1]
		title := strings.Join(fields[2:], " ")
		if cmd == ":visit" {
			if err := h.store.AddVisit(ctx, url, title); err != nil {
				return err
			}
			log.Printf("recorded visit: %s", url)
		} else {
			if err := h.store.AddBookmark(ctx, url, title); err != nil {
				return err
			}
			log.Printf("bookmarked: %s", url)
		}
		return nil

	case ":unbookmark":
		if len(fields) < 2 {
			return fmt.Errorf("usage: :unbookmark <url>")
		}
		if err := h.store.RemoveBookmark(ctx, fields[1]); err != nil {
			return err
		}
		log.Printf("unbookmarked: %s", fields[1])
		return nil

	default:
		return fmt.Errorf("unknown command %s", cmd)
	}
}

// formatStats renders the store totals on one line.
func formatStats(stats *history.Stats) string {
	return fmt.Sprintf("visits: %s  bookmarks: %s",
		utils.FormatWithCommas(int(stats.TotalVisits)),
		utils.FormatWithCommas(int(stats.TotalBookmarks)))
}

// OnCandidates implements complete.Sink.
func (h *InputHandler) OnCandidates(query string, candidates []complete.Candidate) {
	if len(candidates) == 0 {
		log.Warnf("No candidates found for query: '%s'", query)
		return
	}

	if len(candidates) > h.limit {
		candidates = candidates[:h.limit]
	}

	log.Printf("Found %d candidates for query '%s':", len(candidates), query)
	for i, c := range candidates {
		marker := " "
		if c.Bookmarked {
			marker = "*"
		}
		clURL := fmt.Sprintf("\033[38;5;75m%s\033[0m", c.URL)
		log.Printf("%2d.%s %-60s %s", i+1, marker, clURL, c.Title)
	}
}

// OnCompletion implements complete.Sink.
func (h *InputHandler) OnCompletion(query, completion string, ok bool) {
	if ok {
		log.Printf("completion: %s", completion)
	} else {
		log.Print("completion: (none)")
	}

	select {
	case h.updated <- struct{}{}:
	default:
	}
}
