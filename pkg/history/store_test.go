package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore creates a migrated in-memory Store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// An in-memory database exists per connection; keep the pool at one.
	db.SetMaxOpenConns(1)

	require.NoError(t, NewMigrationRunner(db).Run())

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestAddVisit_Roundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddVisit(ctx, "https://example.com/article", "Test Article"))

	sites, err := store.TopSites(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "https://example.com/article", sites[0].URL)
	assert.Equal(t, "Test Article", sites[0].Title)
	assert.Equal(t, 1, sites[0].VisitCount)
	assert.False(t, sites[0].LastVisit.IsZero(), "last visit should be set")
	assert.False(t, sites[0].Bookmarked)
}

func TestAddVisit_RepeatBumpsCountAndTitle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddVisit(ctx, "https://example.com/", "Old Title"))
	require.NoError(t, store.AddVisit(ctx, "https://example.com/", "New Title"))

	sites, err := store.TopSites(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, 2, sites[0].VisitCount)
	assert.Equal(t, "New Title", sites[0].Title)
}

func TestTopSites_RankedByVisitCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.AddVisit(ctx, "https://often.com/", "Often"))
	}
	require.NoError(t, store.AddVisit(ctx, "https://rare.com/", "Rare"))

	sites, err := store.TopSites(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "https://often.com/", sites[0].URL)
	assert.Equal(t, "https://rare.com/", sites[1].URL)
}

func TestTopSites_FilterMatchesURLAndTitle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddVisit(ctx, "https://en.wikipedia.org/", "Wikipedia"))
	require.NoError(t, store.AddVisit(ctx, "https://example.com/", "Encyclopedia of Examples"))
	require.NoError(t, store.AddVisit(ctx, "https://unrelated.net/", "Something Else"))

	byURL, err := store.TopSites(ctx, "wikipedia", 10)
	require.NoError(t, err)
	require.Len(t, byURL, 1)
	assert.Equal(t, "https://en.wikipedia.org/", byURL[0].URL)

	byTitle, err := store.TopSites(ctx, "Encyclopedia", 10)
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "https://example.com/", byTitle[0].URL)
}

func TestTopSites_FilterEscapesLikeMetacharacters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddVisit(ctx, "https://example.com/100%25done", "Progress"))
	require.NoError(t, store.AddVisit(ctx, "https://example.com/other", "Other"))

	sites, err := store.TopSites(ctx, "100%", 10)
	require.NoError(t, err)
	require.Len(t, sites, 1, "a literal %% must not act as a wildcard")
	assert.Equal(t, "https://example.com/100%25done", sites[0].URL)
}

func TestTopSites_LimitApplied(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddVisit(ctx, "https://a.com/", "A"))
	require.NoError(t, store.AddVisit(ctx, "https://b.com/", "B"))
	require.NoError(t, store.AddVisit(ctx, "https://c.com/", "C"))

	sites, err := store.TopSites(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, sites, 2)
}

func TestTopSites_EmptyStoreReturnsEmptySlice(t *testing.T) {
	store := openTestStore(t)

	sites, err := store.TopSites(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.NotNil(t, sites)
	assert.Empty(t, sites)
}

func TestBookmarks_RoundtripAndFlag(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddBookmark(ctx, "https://example.com/", "Example"))

	marks, err := store.Bookmarks(ctx, "examp", 10)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, "https://example.com/", marks[0].URL)
	assert.True(t, marks[0].Bookmarked)
}

func TestRemoveBookmark(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddBookmark(ctx, "https://example.com/", "Example"))
	require.NoError(t, store.RemoveBookmark(ctx, "https://example.com/"))

	marks, err := store.Bookmarks(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, marks)

	err = store.RemoveBookmark(ctx, "https://example.com/")
	assert.Error(t, err, "removing a missing bookmark should report it")
}

func TestGetStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddVisit(ctx, "https://a.com/", "A"))
	require.NoError(t, store.AddVisit(ctx, "https://b.com/", "B"))
	require.NoError(t, store.AddBookmark(ctx, "https://a.com/", "A"))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalVisits)
	assert.EqualValues(t, 1, stats.TotalBookmarks)
	assert.False(t, stats.NewestVisit.IsZero())
	assert.WithinDuration(t, time.Now(), stats.NewestVisit, time.Minute)
}

func TestMigrations_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	require.NoError(t, NewMigrationRunner(db).Run())
	require.NoError(t, NewMigrationRunner(db).Run(), "re-running migrations must be a no-op")

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}
