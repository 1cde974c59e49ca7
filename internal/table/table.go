package table

import (
	"fmt"
	"strings"
)

// Row maps header names to cell values and remembers the order in which keys
// were first set. Setting an existing key replaces its value in place.
type Row struct {
	keys  []string
	cells map[string]Value
}

// NewRow returns an empty row with capacity for n cells.
func NewRow(n int) Row {
	return Row{keys: make([]string, 0, n), cells: make(map[string]Value, n)}
}

// RowOf builds a row from alternating key, value pairs. Values go through Of.
func RowOf(pairs ...any) Row {
	r := NewRow(len(pairs) / 2)
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(fmt.Sprint(pairs[i]), Of(pairs[i+1]))
	}
	return r
}

// Set stores v under key.
func (r *Row) Set(key string, v Value) {
	if r.cells == nil {
		r.cells = map[string]Value{}
	}
	if _, ok := r.cells[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.cells[key] = v
}

// Get returns the value for key; absent keys yield an empty Value and false.
func (r Row) Get(key string) (Value, bool) {
	v, ok := r.cells[key]
	return v, ok
}

// Cell returns the value for key, or an empty Value.
func (r Row) Cell(key string) Value {
	return r.cells[key]
}

// Keys returns the row's keys in first-set order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len reports the number of keys in the row.
func (r Row) Len() int { return len(r.keys) }

// Table is the canonical in-memory form of a tabular file: an ordered header
// list plus data rows keyed by header name.
type Table struct {
	Headers []string
	Rows    []Row
}

// Columns returns the header list, or the first row's keys when the table
// carries no headers.
func (t *Table) Columns() []string {
	if len(t.Headers) > 0 {
		return t.Headers
	}
	if len(t.Rows) > 0 {
		return t.Rows[0].Keys()
	}
	return nil
}

// Len is the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Window returns a table sharing headers with t and holding at most limit rows
// starting at offset. A negative limit means no bound.
func (t *Table) Window(offset, limit int) *Table {
	if offset < 0 {
		offset = 0
	}
	if offset > len(t.Rows) {
		offset = len(t.Rows)
	}
	end := len(t.Rows)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return &Table{Headers: t.Headers, Rows: t.Rows[offset:end]}
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Columns() {
		if h == name {
			return true
		}
	}
	return false
}

// HeaderName returns raw, or a positional placeholder when raw is blank.
// index is 0-based.
func HeaderName(raw string, index int) string {
	if strings.TrimSpace(raw) == "" {
		return fmt.Sprintf("Column %d", index+1)
	}
	return raw
}
