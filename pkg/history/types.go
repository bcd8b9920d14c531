package history

import "time"

// Site is one ranked row out of the visits or bookmarks table.
type Site struct {
	URL        string
	Title      string
	VisitCount int
	LastVisit  time.Time
	Bookmarked bool
}

// Stats holds aggregate statistics about the history database.
type Stats struct {
	TotalVisits    int64
	TotalBookmarks int64
	OldestVisit    time.Time
	NewestVisit    time.Time
}
