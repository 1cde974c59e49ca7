package query

import (
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/vinodismyname/mcpsheets/internal/table"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// Expression is a compiled boolean row predicate. Column values are exposed as
// variables named after their headers; headers that are not identifiers are
// reachable through $env["Header Name"].
type Expression struct {
	source  string
	program *vm.Program
}

// CompileWhere compiles src. Syntax errors are reported as VALIDATION errors.
func CompileWhere(src string) (*Expression, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, mcperr.Errorf(mcperr.Validation, "where expression is empty")
	}
	program, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, mcperr.Wrap(mcperr.Validation, err, "invalid where expression")
	}
	return &Expression{source: src, program: program}, nil
}

func (e *Expression) String() string { return e.source }

// Eval runs the expression against one row. Evaluation errors count as a
// non-match.
func (e *Expression) Eval(columns []string, row table.Row) bool {
	env := make(map[string]any, len(columns))
	for _, col := range columns {
		env[col] = exprValue(row.Cell(col))
	}
	out, err := expr.Run(e.program, env)
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

// Where keeps the rows matching e, in source order, up to limit.
func Where(t *table.Table, e *Expression, limit int) *table.Table {
	out := &table.Table{Headers: t.Headers}
	if limit == 0 {
		return out
	}
	cols := t.Columns()
	for _, row := range t.Rows {
		if !e.Eval(cols, row) {
			continue
		}
		out.Rows = append(out.Rows, row)
		if limit > 0 && len(out.Rows) == limit {
			break
		}
	}
	return out
}

// exprValue maps a cell to an expression operand: numeric text becomes a
// float64 so CSV columns compare as numbers, empty cells become nil.
func exprValue(v table.Value) any {
	switch v.Kind {
	case table.KindEmpty:
		return nil
	case table.KindBool:
		return v.Bool
	}
	if n, ok := v.Float(); ok {
		return n
	}
	return v.Text()
}
