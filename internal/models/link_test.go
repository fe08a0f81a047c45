package models_test

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marekbraun/golinks/internal/db"
	"github.com/marekbraun/golinks/internal/models"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func newLink(owner, slug string) *models.Link {
	return &models.Link{
		OwnerID:     owner,
		Slug:        slug,
		Destination: "https://example.com",
		Title:       "Example",
	}
}

func TestCreateLink(t *testing.T) {
	database := openDB(t)

	l := newLink("user-1", "example")
	require.NoError(t, models.CreateLink(database, l))

	assert.NotZero(t, l.ID)
	assert.EqualValues(t, 0, l.ClickCount)
	assert.False(t, l.CreatedAt.IsZero())

	got, err := models.GetLinkByID(database, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "example", got.Slug)
	assert.Equal(t, "user-1", got.OwnerID)
	assert.EqualValues(t, 0, got.ClickCount)
}

func TestCreateLink_DuplicateSlug(t *testing.T) {
	database := openDB(t)

	require.NoError(t, models.CreateLink(database, newLink("user-1", "taken")))

	err := models.CreateLink(database, newLink("user-2", "taken"))
	require.ErrorIs(t, err, models.ErrSlugTaken)

	// No second document was created.
	links, err := models.ListLinksByOwner(database, "user-2")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestGetLinkBySlug_NotFound(t *testing.T) {
	database := openDB(t)

	_, err := models.GetLinkBySlug(database, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGetLinkByIDAndOwner_WrongOwner(t *testing.T) {
	database := openDB(t)

	l := newLink("user-1", "mine")
	require.NoError(t, models.CreateLink(database, l))

	_, err := models.GetLinkByIDAndOwner(database, l.ID, "user-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListLinksByOwner_NewestFirst(t *testing.T) {
	database := openDB(t)

	for _, s := range []string{"first", "second", "third"} {
		require.NoError(t, models.CreateLink(database, newLink("user-1", s)))
	}
	require.NoError(t, models.CreateLink(database, newLink("user-2", "other")))

	links, err := models.ListLinksByOwner(database, "user-1")
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "third", links[0].Slug)
	assert.Equal(t, "first", links[2].Slug)
}

func TestUpdateLink(t *testing.T) {
	database := openDB(t)

	l := newLink("user-1", "before")
	require.NoError(t, models.CreateLink(database, l))

	l.Slug = "after"
	l.Destination = "https://example.org"
	l.Title = "Renamed"
	require.NoError(t, models.UpdateLink(database, l))

	got, err := models.GetLinkByID(database, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Slug)
	assert.Equal(t, "https://example.org", got.Destination)
	assert.Equal(t, "Renamed", got.Title)
}

func TestUpdateLink_SlugConflictLeavesRowUnchanged(t *testing.T) {
	database := openDB(t)

	require.NoError(t, models.CreateLink(database, newLink("user-1", "held")))
	l := newLink("user-1", "mine")
	require.NoError(t, models.CreateLink(database, l))

	l.Slug = "held"
	l.Title = "should not stick"
	err := models.UpdateLink(database, l)
	require.ErrorIs(t, err, models.ErrSlugTaken)

	got, err := models.GetLinkByID(database, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Slug)
	assert.Equal(t, "Example", got.Title)
}

func TestDeleteLink(t *testing.T) {
	database := openDB(t)

	l := newLink("user-1", "gone")
	require.NoError(t, models.CreateLink(database, l))
	require.NoError(t, models.DeleteLink(database, l.ID, "user-1"))

	_, err := models.GetLinkByID(database, l.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	err = models.DeleteLink(database, l.ID, "user-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDeleteLink_WrongOwner(t *testing.T) {
	database := openDB(t)

	l := newLink("user-1", "guarded")
	require.NoError(t, models.CreateLink(database, l))

	err := models.DeleteLink(database, l.ID, "user-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = models.GetLinkByID(database, l.ID)
	assert.NoError(t, err)
}

func TestDeleteLink_KeepsClicks(t *testing.T) {
	database := openDB(t)

	l := newLink("user-1", "clicked")
	require.NoError(t, models.CreateLink(database, l))
	require.NoError(t, models.InsertClick(database, &models.Click{LinkID: l.ID, IP: "203.0.113.9"}))

	require.NoError(t, models.DeleteLink(database, l.ID, "user-1"))

	clicks, err := models.ListClicksByLink(database, l.ID)
	require.NoError(t, err)
	assert.Len(t, clicks, 1)
}

func TestCountLinksCreatedSince(t *testing.T) {
	database := openDB(t)

	require.NoError(t, models.CreateLink(database, newLink("user-1", "one")))
	require.NoError(t, models.CreateLink(database, newLink("user-1", "two")))

	n, err := models.CountLinksCreatedSince(database, "user-1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = models.CountLinksCreatedSince(database, "user-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIncrementClickCount_Concurrent(t *testing.T) {
	database := openDB(t)

	l := newLink("user-1", "busy")
	require.NoError(t, models.CreateLink(database, l))

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- models.IncrementClickCount(database, l.ID)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := models.GetLinkByID(database, l.ID)
	require.NoError(t, err)
	assert.EqualValues(t, n, got.ClickCount)
}

func TestIncrementClickCount_UnknownLink(t *testing.T) {
	database := openDB(t)
	err := models.IncrementClickCount(database, 12345)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
