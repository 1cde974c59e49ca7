// Package sheets implements the spreadsheet operations exposed by the server
// and CLI: file info, preview, filter, sort, expression queries and writing a
// styled sheet. Every call reads the file afresh.
package sheets

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/mcpsheets/internal/query"
	"github.com/vinodismyname/mcpsheets/internal/readers"
	"github.com/vinodismyname/mcpsheets/internal/table"
	"github.com/vinodismyname/mcpsheets/internal/workbooks"
	"github.com/vinodismyname/mcpsheets/internal/writer"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/vinodismyname/mcpsheets/pkg/validation"
)

// FileInfo describes a file's shape. RowCount excludes the header row.
type FileInfo struct {
	RowCount int      `json:"rowCount"`
	ColCount int      `json:"colCount"`
	Headers  []string `json:"headers"`
}

// Result is one window of an operation's output. Total counts every row the
// operation produced before the window was applied.
type Result struct {
	Headers []string
	Data    []table.Row
	Total   int
	Offset  int

	// Path is the canonical path that was read; ModTime its modification time.
	Path    string
	ModTime time.Time
}

// Truncated reports whether rows exist beyond this window.
func (r Result) Truncated() bool {
	return r.Offset+len(r.Data) < r.Total
}

// FilterRequest selects rows whose Column compares to Operand under Operator.
// A nil Rows returns every match.
type FilterRequest struct {
	Path     string
	Column   string
	Operator query.Operator
	Operand  any
	Rows     *int
	Offset   int
}

// SortRequest orders rows by Column.
type SortRequest struct {
	Path      string
	Column    string
	Direction query.Direction
	Rows      *int
	Offset    int
}

// QueryRequest keeps rows for which the Where expression is true.
type QueryRequest struct {
	Path   string
	Where  string
	Rows   *int
	Offset int
}

// WriteRequest adds or replaces SheetName in the workbook at Path.
type WriteRequest struct {
	Path      string
	SheetName string
	Headers   []string
	Rows      []map[string]any
	Style     writer.StyleConfig
}

// Service runs sheet operations through a workbooks.Manager, which owns path
// policy and open-file capacity.
type Service struct {
	files *workbooks.Manager
}

// NewService constructs a Service. A nil manager admits any path.
func NewService(files *workbooks.Manager) *Service {
	if files == nil {
		files = workbooks.NewManager(nil, nil)
	}
	return &Service{files: files}
}

type loaded struct {
	table   *table.Table
	path    string
	modTime time.Time
}

func (s *Service) load(ctx context.Context, path string) (*loaded, error) {
	var out loaded
	err := s.files.WithRead(ctx, path, func(canonical string) error {
		t, err := readers.Read(ctx, canonical)
		if err != nil {
			return err
		}
		out.table = t
		out.path = canonical
		if info, err := os.Stat(canonical); err == nil {
			out.modTime = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFileInfo reports the row count, column count and headers of path.
func (s *Service) GetFileInfo(ctx context.Context, path string) (FileInfo, error) {
	l, err := s.load(ctx, path)
	if err != nil {
		return FileInfo{}, err
	}
	cols := l.table.Columns()
	return FileInfo{RowCount: l.table.Len(), ColCount: len(cols), Headers: cols}, nil
}

// GetPreview returns the first rows data rows of path.
func (s *Service) GetPreview(ctx context.Context, path string, rows int) (Result, error) {
	if rows < 0 {
		return Result{}, mcperr.Errorf(mcperr.Validation, "rows must be >= 0, got %d", rows)
	}
	l, err := s.load(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return window(l, l.table, 0, rows), nil
}

// FilterData returns rows matching the request's comparison, in file order.
func (s *Service) FilterData(ctx context.Context, req FilterRequest) (Result, error) {
	limit, err := limitOf(req.Rows, req.Offset)
	if err != nil {
		return Result{}, err
	}
	l, err := s.load(ctx, req.Path)
	if err != nil {
		return Result{}, err
	}
	matched := query.Filter(l.table, req.Column, req.Operator, req.Operand, query.NoLimit)
	zerolog.Ctx(ctx).Debug().
		Str("column", req.Column).
		Str("operator", string(req.Operator)).
		Int("matched", matched.Len()).
		Msg("filter applied")
	return window(l, matched, req.Offset, limit), nil
}

// SortData returns rows ordered by the request's column. Ties keep file order.
func (s *Service) SortData(ctx context.Context, req SortRequest) (Result, error) {
	limit, err := limitOf(req.Rows, req.Offset)
	if err != nil {
		return Result{}, err
	}
	dir := query.Direction(strings.ToLower(string(req.Direction)))
	switch dir {
	case "":
		dir = query.Asc
	case query.Asc, query.Desc:
	default:
		return Result{}, mcperr.Errorf(mcperr.Validation, "direction must be asc or desc, got %q", req.Direction)
	}
	l, err := s.load(ctx, req.Path)
	if err != nil {
		return Result{}, err
	}
	sorted := query.Sort(l.table, req.Column, dir, query.NoLimit)
	return window(l, sorted, req.Offset, limit), nil
}

// QueryData returns rows for which the request's boolean expression holds.
// Column names are variables; names that are not identifiers are reachable
// as $env["Column Name"].
func (s *Service) QueryData(ctx context.Context, req QueryRequest) (Result, error) {
	limit, err := limitOf(req.Rows, req.Offset)
	if err != nil {
		return Result{}, err
	}
	expr, err := query.CompileWhere(req.Where)
	if err != nil {
		return Result{}, err
	}
	l, err := s.load(ctx, req.Path)
	if err != nil {
		return Result{}, err
	}
	matched := query.Where(l.table, expr, query.NoLimit)
	return window(l, matched, req.Offset, limit), nil
}

// WriteSheet writes req as a new sheet, replacing any sheet of the same name,
// and saves the workbook. A missing workbook is created.
func (s *Service) WriteSheet(ctx context.Context, req WriteRequest) error {
	if !validation.ValidSheetName(req.SheetName) {
		return mcperr.Errorf(mcperr.Validation, "invalid sheet name %q", req.SheetName)
	}
	if len(req.Headers) == 0 {
		return mcperr.Errorf(mcperr.Validation, "headers must not be empty")
	}
	err := s.files.WithWrite(ctx, req.Path, func(f *excelize.File, created bool) error {
		if err := writer.WriteSheet(f, req.SheetName, req.Headers, req.Rows, req.Style); err != nil {
			return err
		}
		if created {
			return writer.DropDefaultSheet(f, req.SheetName)
		}
		return nil
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().
		Str("path", req.Path).
		Str("sheet", req.SheetName).
		Int("rows", len(req.Rows)).
		Msg("sheet written")
	return nil
}

func limitOf(rows *int, offset int) (int, error) {
	if offset < 0 {
		return 0, mcperr.Errorf(mcperr.Validation, "offset must be >= 0, got %d", offset)
	}
	if rows == nil {
		return query.NoLimit, nil
	}
	if *rows < 0 {
		return 0, mcperr.Errorf(mcperr.Validation, "rows must be >= 0, got %d", *rows)
	}
	return *rows, nil
}

func window(l *loaded, t *table.Table, offset, limit int) Result {
	w := t.Window(offset, limit)
	rows := w.Rows
	if rows == nil {
		rows = []table.Row{}
	}
	return Result{
		Headers: t.Columns(),
		Data:    rows,
		Total:   t.Len(),
		Offset:  offset,
		Path:    l.path,
		ModTime: l.modTime,
	}
}
