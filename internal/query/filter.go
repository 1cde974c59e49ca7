package query

import (
	"strings"

	"github.com/vinodismyname/mcpsheets/internal/table"
)

// Operator names a filter comparison.
type Operator string

const (
	Eq       Operator = "eq"
	Neq      Operator = "neq"
	Gt       Operator = "gt"
	Lt       Operator = "lt"
	Gte      Operator = "gte"
	Lte      Operator = "lte"
	Contains Operator = "contains"
)

// Operators lists the supported operators in declaration order.
func Operators() []Operator {
	return []Operator{Eq, Neq, Gt, Lt, Gte, Lte, Contains}
}

// NoLimit disables truncation for Filter, Sort and Where.
const NoLimit = -1

// Filter returns the rows of t whose cell in column satisfies op against
// operand, in source order. A limit of zero yields no rows; a negative limit
// keeps every match. Rows lacking the column are compared as empty cells.
func Filter(t *table.Table, column string, op Operator, operand any, limit int) *table.Table {
	out := &table.Table{Headers: t.Headers}
	if limit == 0 {
		return out
	}
	want := table.Of(operand)
	for _, row := range t.Rows {
		if !Match(op, row.Cell(column), want) {
			continue
		}
		out.Rows = append(out.Rows, row)
		if limit > 0 && len(out.Rows) == limit {
			break
		}
	}
	return out
}

// Match evaluates one comparison. Unknown operators never match.
func Match(op Operator, cell, operand table.Value) bool {
	switch op {
	case Eq, Neq:
		if isBool(cell) || isBool(operand) {
			x, ok := asBool(cell)
			if !ok {
				return false
			}
			y, ok := asBool(operand)
			if !ok {
				return false
			}
			return (x == y) == (op == Eq)
		}
		if op == Eq {
			return equal(cell, operand)
		}
		return !equal(cell, operand)
	case Gt, Lt, Gte, Lte:
		a, ok := cell.Float()
		if !ok {
			return false
		}
		b, ok := operand.Float()
		if !ok {
			return false
		}
		switch op {
		case Gt:
			return a > b
		case Lt:
			return a < b
		case Gte:
			return a >= b
		default:
			return a <= b
		}
	case Contains:
		return cell.Textual() && strings.Contains(cell.Text(), operand.Text())
	}
	return false
}

// equal compares canonical text; when either side is a number and both read
// as numbers, numeric equality also counts ("10.0" equals 10).
func equal(a, b table.Value) bool {
	if a.Text() == b.Text() {
		return true
	}
	if !isNumber(a) && !isNumber(b) {
		return false
	}
	x, ok := a.Float()
	if !ok {
		return false
	}
	y, ok := b.Float()
	return ok && x == y
}

func isNumber(v table.Value) bool {
	if v.Kind == table.KindFormula && v.Cached != nil {
		return isNumber(*v.Cached)
	}
	return v.Kind == table.KindNumber
}

func isBool(v table.Value) bool {
	if v.Kind == table.KindFormula && v.Cached != nil {
		return isBool(*v.Cached)
	}
	return v.Kind == table.KindBool
}

// asBool reads true/false in any case and 1/0 as booleans. Anything else is
// not comparable with a boolean cell.
func asBool(v table.Value) (bool, bool) {
	switch v.Kind {
	case table.KindBool:
		return v.Bool, true
	case table.KindFormula:
		if v.Cached == nil {
			return false, false
		}
		return asBool(*v.Cached)
	case table.KindNumber:
		switch v.Num {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	case table.KindString:
		switch strings.ToLower(strings.TrimSpace(v.Str)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	}
	return false, false
}
