package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marekbraun/golinks/internal/models"
)

func TestInsertClick(t *testing.T) {
	database := openDB(t)

	l := newLink("user-1", "tracked")
	require.NoError(t, models.CreateLink(database, l))

	c := &models.Click{
		LinkID:    l.ID,
		IP:        "203.0.113.4",
		UserAgent: "Mozilla/5.0",
		Referer:   "https://news.ycombinator.com/item?id=1",
	}
	require.NoError(t, models.InsertClick(database, c))
	assert.NotZero(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	clicks, err := models.ListClicksByLink(database, l.ID)
	require.NoError(t, err)
	require.Len(t, clicks, 1)
	assert.Equal(t, "203.0.113.4", clicks[0].IP)
	assert.Equal(t, "Mozilla/5.0", clicks[0].UserAgent)
}

func TestListClicksByLink_NewestFirst(t *testing.T) {
	database := openDB(t)

	l := newLink("user-1", "ordered")
	require.NoError(t, models.CreateLink(database, l))

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		c := &models.Click{
			LinkID:    l.ID,
			IP:        "203.0.113.4",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, models.InsertClick(database, c))
	}

	clicks, err := models.ListClicksByLink(database, l.ID)
	require.NoError(t, err)
	require.Len(t, clicks, 3)
	assert.True(t, clicks[0].CreatedAt.After(clicks[2].CreatedAt))
}

func TestClickCountForLink(t *testing.T) {
	database := openDB(t)

	l := newLink("user-1", "counted")
	require.NoError(t, models.CreateLink(database, l))

	n, err := models.ClickCountForLink(database, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, models.InsertClick(database, &models.Click{LinkID: l.ID}))
	require.NoError(t, models.InsertClick(database, &models.Click{LinkID: l.ID}))

	n, err = models.ClickCountForLink(database, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
