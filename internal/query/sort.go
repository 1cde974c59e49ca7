package query

import (
	"cmp"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/vinodismyname/mcpsheets/internal/table"
)

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort returns t's rows ordered by column. Rows comparing equal keep their
// source order in both directions. Truncation to limit happens after sorting;
// a negative limit keeps every row. Anything other than Desc sorts ascending.
func Sort(t *table.Table, column string, dir Direction, limit int) *table.Table {
	rows := make([]table.Row, len(t.Rows))
	copy(rows, t.Rows)

	// A Collator is not safe for concurrent use.
	c := newCollator()
	sort.SliceStable(rows, func(i, j int) bool {
		n := Compare(c, rows[i].Cell(column), rows[j].Cell(column))
		if dir == Desc {
			return n > 0
		}
		return n < 0
	})

	out := &table.Table{Headers: t.Headers, Rows: rows}
	return out.Window(0, limit)
}

// Compare orders two cells: numerically when both read as numbers, otherwise
// by locale-aware collation of their text with digit runs compared by value.
func Compare(c *collate.Collator, a, b table.Value) int {
	x, okA := a.Float()
	y, okB := b.Float()
	if okA && okB {
		return cmp.Compare(x, y)
	}
	return c.CompareString(a.Text(), b.Text())
}

func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.Numeric)
}
