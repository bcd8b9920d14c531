package complete

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeCandidates_BookmarkWinsOverHistory(t *testing.T) {
	history := []Candidate{{URL: "http://a.com/", Title: "from history", Bookmarked: false}}
	bookmarks := []Candidate{{URL: "http://a.com/", Title: "from bookmarks", Bookmarked: true}}

	merged := MergeCandidates(history, bookmarks)

	require.Len(t, merged, 1)
	assert.Equal(t, "http://a.com/", merged[0].URL)
	assert.True(t, merged[0].Bookmarked, "bookmark entry must win for the same url")
	assert.Equal(t, "from bookmarks", merged[0].Title)
}

func TestMergeCandidates_DisjointListsKeepAll(t *testing.T) {
	history := []Candidate{
		{URL: "http://a.com/"},
		{URL: "http://b.com/"},
	}
	bookmarks := []Candidate{
		{URL: "http://c.com/", Bookmarked: true},
	}

	merged := MergeCandidates(history, bookmarks)

	urls := make(map[string]bool)
	for _, c := range merged {
		urls[c.URL] = true
	}
	assert.Len(t, merged, 3)
	assert.True(t, urls["http://a.com/"])
	assert.True(t, urls["http://b.com/"])
	assert.True(t, urls["http://c.com/"])
}

func TestMergeCandidates_LaterDuplicateReplacesWithinList(t *testing.T) {
	history := []Candidate{
		{URL: "http://a.com/", Title: "first"},
		{URL: "http://a.com/", Title: "second"},
	}

	merged := MergeCandidates(history, nil)

	require.Len(t, merged, 1)
	assert.Equal(t, "second", merged[0].Title)
}

func TestMergeCandidates_EveryBookmarkURLEndsBookmarked(t *testing.T) {
	history := []Candidate{
		{URL: "http://a.com/"},
		{URL: "http://b.com/"},
		{URL: "http://c.com/"},
	}
	bookmarks := []Candidate{
		{URL: "http://b.com/", Bookmarked: true},
		{URL: "http://c.com/", Bookmarked: true},
	}

	merged := MergeCandidates(history, bookmarks)

	require.Len(t, merged, 3)
	for _, c := range merged {
		if c.URL == "http://a.com/" {
			assert.False(t, c.Bookmarked)
			continue
		}
		assert.True(t, c.Bookmarked, "url %s present in bookmark list must end up bookmarked", c.URL)
	}
}

func TestMergeCandidates_EmptyInputs(t *testing.T) {
	assert.Empty(t, MergeCandidates(nil, nil))
	assert.Len(t, MergeCandidates([]Candidate{{URL: "http://a.com/"}}, nil), 1)
	assert.Len(t, MergeCandidates(nil, []Candidate{{URL: "http://a.com/"}}), 1)
}
