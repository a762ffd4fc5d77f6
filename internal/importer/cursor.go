package importer

import "github.com/doctordir/importer/internal/directory"

// pageCursor translates a flat record cursor into remote page
// coordinates. The remote API paginates at a fixed page size that is
// unrelated to the configured batch size, so one logical batch may span
// several physical pages; keeping the arithmetic here keeps the
// boundary-crossing logic testable in isolation.
type pageCursor struct {
	pageSize int
}

func newPageCursor(pageSize int) pageCursor {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return pageCursor{pageSize: pageSize}
}

// position returns the page holding the record at cursor and the offset
// of that record within the page.
func (c pageCursor) position(cursor int) (page, offset int) {
	return cursor / c.pageSize, cursor % c.pageSize
}

// window slices rows (one fetched page) to the records covered by a
// batch starting at cursor and needing want more records.
func (c pageCursor) window(rows []directory.Record, cursor, want int) []directory.Record {
	_, offset := c.position(cursor)
	if offset >= len(rows) {
		return nil
	}
	end := offset + want
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
