package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doctordir/importer/internal/directory"
)

func makeRows(n int) []directory.Record {
	rows := make([]directory.Record, n)
	for i := range rows {
		rows[i] = directory.Record{"i": float64(i)}
	}
	return rows
}

func TestPageCursorPosition(t *testing.T) {
	c := newPageCursor(20)

	page, offset := c.position(0)
	assert.Equal(t, 0, page)
	assert.Equal(t, 0, offset)

	page, offset = c.position(19)
	assert.Equal(t, 0, page)
	assert.Equal(t, 19, offset)

	page, offset = c.position(20)
	assert.Equal(t, 1, page)
	assert.Equal(t, 0, offset)

	page, offset = c.position(50)
	assert.Equal(t, 2, page)
	assert.Equal(t, 10, offset)
}

func TestPageCursorDefaultsPageSize(t *testing.T) {
	c := newPageCursor(0)
	page, _ := c.position(defaultPageSize)
	assert.Equal(t, 1, page)
}

func TestPageCursorWindow(t *testing.T) {
	c := newPageCursor(20)

	t.Run("full page from start", func(t *testing.T) {
		window := c.window(makeRows(20), 0, 20)
		assert.Len(t, window, 20)
	})

	t.Run("mid-page start", func(t *testing.T) {
		// Cursor 50 is offset 10 within page 2; wanting 20 more records
		// takes only the 10 remaining on this page.
		window := c.window(makeRows(20), 50, 20)
		assert.Len(t, window, 10)
		assert.Equal(t, "10", window[0].Str("i"))
	})

	t.Run("want less than page remainder", func(t *testing.T) {
		window := c.window(makeRows(20), 0, 5)
		assert.Len(t, window, 5)
	})

	t.Run("short page", func(t *testing.T) {
		// The last remote page may carry fewer rows than the page size.
		window := c.window(makeRows(3), 40, 20)
		assert.Len(t, window, 3)
	})

	t.Run("offset beyond page is empty", func(t *testing.T) {
		window := c.window(makeRows(3), 45, 20)
		assert.Nil(t, window)
	})
}
