/*
Package domains holds the static popular-domain fallback list.

The list is a newline-separated file of lowercase domains, loaded once at
startup and read-only for the process lifetime. Entries are indexed in a
patricia trie by every label-boundary suffix, so the fallback search runs a
single subtree visit instead of scanning the whole file per keystroke, while
returning exactly what a file-order scan of the domain matcher would.
*/
package domains

import (
	"bufio"
	"os"
	"strings"

	"github.com/bastiangx/omniserve/internal/logger"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// List is the immutable static domain list with its suffix index. Safe for
// concurrent readers once built.
type List struct {
	entries []string
	index   *patricia.Trie
	log     *log.Logger
}

// entryRef locates one label-boundary suffix of one list entry.
// pos is the entry's file-order position, off the byte offset of the label
// start within the entry. Smaller (pos, off) always wins a search.
type entryRef struct {
	pos int
	off int
}

// Load reads a newline-separated domain list from path. Blank lines and
// '#' comments are skipped; entries are lowercased. On failure the returned
// list is empty but usable, so callers degrade to no fallback completions
// instead of aborting.
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return NewList(nil), err
	}
	defer f.Close()

	var entries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, strings.ToLower(line))
	}
	if err := sc.Err(); err != nil {
		return NewList(nil), err
	}
	return NewList(entries), nil
}

// NewList builds a list and its index from entries in file order.
func NewList(entries []string) *List {
	l := &List{
		entries: entries,
		index:   patricia.NewTrie(),
		log:     logger.New("domains"),
	}
	for i, d := range entries {
		l.indexEntry(i, d)
	}
	return l
}

// indexEntry inserts every suffix of d that starts at a label boundary and
// still spans at least one dot. Suffixes inside the final label are exactly
// the bare-TLD matches the matcher rejects, so they are never indexed.
func (l *List) indexEntry(pos int, d string) {
	off := 0
	for {
		suffix := d[off:]
		dot := strings.Index(suffix, ".")
		if dot < 0 {
			return
		}
		l.insert(suffix, entryRef{pos: pos, off: off})
		off += dot + 1
	}
}

// insert keeps the smallest (pos, off) ref per key, matching the
// first-in-file, leftmost-label precedence of a linear scan.
func (l *List) insert(key string, ref entryRef) {
	if item := l.index.Get(patricia.Prefix(key)); item != nil {
		cur := item.(entryRef)
		if cur.pos < ref.pos || (cur.pos == ref.pos && cur.off <= ref.off) {
			return
		}
	}
	l.index.Set(patricia.Prefix(key), ref)
}

// Search returns the fallback completion for query: the suffix of the first
// matching entry in file order, starting at the leftmost label whose tail
// begins with the query. The match is case-insensitive and equivalent to
// running the domain matcher over every entry in file order.
func (l *List) Search(query string) (string, bool) {
	if query == "" {
		return "", false
	}

	best := entryRef{pos: -1}
	err := l.index.VisitSubtree(patricia.Prefix(strings.ToLower(query)), func(p patricia.Prefix, item patricia.Item) error {
		ref := item.(entryRef)
		if best.pos < 0 || ref.pos < best.pos || (ref.pos == best.pos && ref.off < best.off) {
			best = ref
		}
		return nil
	})
	if err != nil {
		l.log.Errorf("Error visiting domain index: %v", err)
		return "", false
	}

	if best.pos < 0 {
		return "", false
	}
	return l.entries[best.pos][best.off:], true
}

// Len returns the number of loaded entries.
func (l *List) Len() int {
	return len(l.entries)
}

// Entries returns the entries in file order. The slice must not be mutated.
func (l *List) Entries() []string {
	return l.entries
}
