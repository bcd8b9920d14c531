package complete

import (
	"regexp"
	"strings"

	"github.com/bastiangx/omniserve/internal/utils"
)

// prePathRE captures the scheme://host/ prefix of an http(s) URL, anchored
// at the start. Group 1 is the full prefix including the trailing slash,
// group 2 the host alone. Anything else (other schemes, no path separator)
// never matches.
var prePathRE = regexp.MustCompile(`^(https?://([^/]+)/)`)

// CompletionForURL computes the inline completion for a single candidate URL
// against the typed query. The direct match is case-sensitive on the
// captured scheme+host prefix with its trailing slash stripped; when that
// fails, the host falls through to the domain-label match. Malformed or
// non-HTTP(S) URLs yield no completion and never abort the batch.
func CompletionForURL(url, query string) (string, bool) {
	m := prePathRE.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	prePath, host := m[1], m[2]
	if strings.HasPrefix(prePath, query) {
		return strings.TrimSuffix(prePath, "/"), true
	}
	return CompletionForDomain(host, query)
}

// CompletionForDomain matches the query against a domain at label
// boundaries. The synthetic leading dot makes "wikipedia" match the start of
// any label of "en.m.wikipedia.org" without matching inside an unrelated
// substring; the search itself is case-insensitive. A match that leaves only
// the final label (a bare TLD like "com") is rejected.
func CompletionForDomain(domain, query string) (string, bool) {
	cand := "." + domain
	idx := utils.IndexIgnoreCase(cand, "."+query)
	if idx < 0 {
		return "", false
	}
	completion := cand[idx+1:]
	if !strings.Contains(completion, ".") {
		return "", false
	}
	return completion, true
}
