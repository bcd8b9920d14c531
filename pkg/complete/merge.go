package complete

// MergeCandidates deduplicates two ranked candidate lists by URL. History
// entries are inserted first, bookmark entries after; inserting a URL that is
// already present replaces the stored entry, so bookmarks always win over
// history and later duplicates win within a single list. The returned slice
// keeps first-insertion order, but that order is incidental: consumers may
// rely only on membership and on the bookmark-wins rule.
func MergeCandidates(history, bookmarks []Candidate) []Candidate {
	byURL := make(map[string]int, len(history)+len(bookmarks))
	merged := make([]Candidate, 0, len(history)+len(bookmarks))

	insert := func(c Candidate) {
		if i, ok := byURL[c.URL]; ok {
			merged[i] = c
			return
		}
		byURL[c.URL] = len(merged)
		merged = append(merged, c)
	}

	for _, c := range history {
		insert(c)
	}
	for _, c := range bookmarks {
		insert(c)
	}
	return merged
}
