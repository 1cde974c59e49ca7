package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vinodismyname/mcpsheets/internal/query"
	"github.com/vinodismyname/mcpsheets/internal/render"
	"github.com/vinodismyname/mcpsheets/internal/runtime"
	"github.com/vinodismyname/mcpsheets/internal/sheets"
	"github.com/vinodismyname/mcpsheets/internal/writer"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
	"github.com/vinodismyname/mcpsheets/pkg/pagination"
	"github.com/vinodismyname/mcpsheets/pkg/validation"
)

// Tool names.
const (
	ToolInfo   = "spreadsheet_info"
	ToolView   = "view_spreadsheet"
	ToolFilter = "filter_spreadsheet"
	ToolSort   = "sort_spreadsheet"
	ToolQuery  = "query_spreadsheet"
	ToolWrite  = "update_spreadsheet_with_new_sheet"
)

// Output encodings for paged tools.
const (
	EncodingJSON     = "json"
	EncodingMarkdown = "markdown"
	EncodingCSV      = "csv"
)

// --- Input / Output Schemas (typed for discovery) ---

// InfoInput names the file to describe.
type InfoInput struct {
	FilePath string `json:"filePath" validate:"required,sheet_path" jsonschema_description:"Path to a .csv, .xlsx, .xlsm or .xls file inside an allowed directory"`
}

// ViewInput defines parameters for view_spreadsheet.
type ViewInput struct {
	FilePath string `json:"filePath" validate:"required,sheet_path" jsonschema_description:"Path to a .csv, .xlsx, .xlsm or .xls file inside an allowed directory"`
	Rows     *int   `json:"rows,omitempty" validate:"omitempty,gte=0" jsonschema_description:"Number of data rows to preview (default 10)"`
}

// ViewOutput pairs file shape with a nested-array preview.
type ViewOutput struct {
	FileInfo    sheets.FileInfo `json:"fileInfo"`
	PreviewData [][]any         `json:"previewData"`
}

// FilterInput defines parameters for filter_spreadsheet.
type FilterInput struct {
	FilePath string `json:"filePath" validate:"required,sheet_path" jsonschema_description:"Path to a .csv, .xlsx, .xlsm or .xls file inside an allowed directory"`
	Column   string `json:"column" validate:"required" jsonschema_description:"Header name of the column to compare"`
	Operator string `json:"operator" validate:"required,oneof=eq neq gt lt gte lte contains" jsonschema_description:"Comparison: eq, neq, gt, lt, gte, lte or contains"`
	Value    any    `json:"value" jsonschema_description:"Operand; a string, a number or a boolean. Boolean cells compare as booleans (true/false in any case, 1/0)"`
	Rows     *int   `json:"rows,omitempty" validate:"omitempty,gte=0" jsonschema_description:"Maximum rows to return; omit for all matches"`
	Encoding string `json:"encoding,omitempty" validate:"omitempty,oneof=json markdown csv" jsonschema_description:"Output encoding: json (default), markdown or csv"`
	Cursor   string `json:"cursor,omitempty" validate:"omitempty,cursor" jsonschema_description:"nextCursor from a previous page of the same request"`
}

// SortInput defines parameters for sort_spreadsheet.
type SortInput struct {
	FilePath string `json:"filePath" validate:"required,sheet_path" jsonschema_description:"Path to a .csv, .xlsx, .xlsm or .xls file inside an allowed directory"`
	Column   string `json:"column" validate:"required" jsonschema_description:"Header name of the column to sort by"`
	Order    string `json:"order,omitempty" validate:"omitempty,oneof=asc desc" jsonschema_description:"asc (default) or desc"`
	Rows     *int   `json:"rows,omitempty" validate:"omitempty,gte=0" jsonschema_description:"Maximum rows to return; omit for all rows"`
	Encoding string `json:"encoding,omitempty" validate:"omitempty,oneof=json markdown csv" jsonschema_description:"Output encoding: json (default), markdown or csv"`
	Cursor   string `json:"cursor,omitempty" validate:"omitempty,cursor" jsonschema_description:"nextCursor from a previous page of the same request"`
}

// QueryInput defines parameters for query_spreadsheet.
type QueryInput struct {
	FilePath string `json:"filePath" validate:"required,sheet_path" jsonschema_description:"Path to a .csv, .xlsx, .xlsm or .xls file inside an allowed directory"`
	Where    string `json:"where" validate:"required" jsonschema_description:"Boolean expression over columns, e.g. Qty > 5 && Region == \"West\"; use $env[\"Unit Price\"] for headers with spaces"`
	Rows     *int   `json:"rows,omitempty" validate:"omitempty,gte=0" jsonschema_description:"Maximum rows to return; omit for all matches"`
	Encoding string `json:"encoding,omitempty" validate:"omitempty,oneof=json markdown csv" jsonschema_description:"Output encoding: json (default), markdown or csv"`
	Cursor   string `json:"cursor,omitempty" validate:"omitempty,cursor" jsonschema_description:"nextCursor from a previous page of the same request"`
}

// PageMeta captures paging/truncation metadata.
type PageMeta struct {
	Total      int    `json:"total"`
	Returned   int    `json:"returned"`
	Truncated  bool   `json:"truncated"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// TableOutput is the structured result of the paged tools. Data is present
// for the json encoding only; other encodings are carried as text content.
type TableOutput struct {
	Encoding string   `json:"encoding"`
	Data     [][]any  `json:"data,omitempty"`
	Meta     PageMeta `json:"meta"`
}

// WriteInput defines parameters for update_spreadsheet_with_new_sheet.
type WriteInput struct {
	FilePath  string              `json:"filePath" validate:"required,workbook_path" jsonschema_description:"Path to an .xlsx or .xlsm workbook; created when missing"`
	SheetName string              `json:"sheetName" validate:"required,sheet_name" jsonschema_description:"Name of the sheet to create; an existing sheet with this name is replaced"`
	Headers   []string            `json:"headers" validate:"required,min=1" jsonschema_description:"Header row, left to right"`
	Data      []map[string]any    `json:"data" jsonschema_description:"Rows keyed by header. A cell is a scalar or an object with value, formula, style and hyperlink, e.g. {\"formula\": \"=SUM(B2:B9)\", \"value\": 42}"`
	Options   *writer.StyleConfig `json:"options,omitempty" jsonschema_description:"headerStyle and rowStyle (alternating palette) follow excelize Style (font, fill, border, alignment, numFmt); border is a list of sides such as [{\"type\": \"left\", \"style\": 1, \"color\": \"000000\"}] applied to every cell"`
}

// WriteOutput confirms a write.
type WriteOutput struct {
	FilePath  string `json:"filePath"`
	SheetName string `json:"sheetName"`
	Rows      int    `json:"rows"`
}

// Tools binds the sheet service to MCP tool handlers.
type Tools struct {
	svc    *sheets.Service
	limits runtime.Limits
	writes bool
}

// NewTools constructs handlers for svc bounded by limits. Write handlers
// refuse to run unless writes is set, whether or not the tool is listed.
func NewTools(svc *sheets.Service, limits runtime.Limits, writes bool) *Tools {
	return &Tools{svc: svc, limits: limits, writes: writes}
}

// RegisterSheetTools adds every spreadsheet tool to s and records it in reg.
func RegisterSheetTools(s *server.MCPServer, reg *Registry, t *Tools) {
	add := func(tool mcp.Tool, h server.ToolHandlerFunc) {
		s.AddTool(tool, h)
		reg.Register(tool)
	}

	add(mcp.NewTool(
		ToolInfo,
		mcp.WithDescription("Return the data row count, column count and header names of a spreadsheet. The header row is not counted."),
		mcp.WithInputSchema[InfoInput](),
		mcp.WithOutputSchema[sheets.FileInfo](),
	), mcp.NewTypedToolHandler(t.Info))

	add(mcp.NewTool(
		ToolView,
		mcp.WithDescription(fmt.Sprintf("Show file shape and the first N data rows (default %d) as a nested array whose first element is the header row. Text content carries a markdown table.", t.limits.PreviewRowLimit)),
		mcp.WithInputSchema[ViewInput](),
		mcp.WithOutputSchema[ViewOutput](),
	), mcp.NewTypedToolHandler(t.View))

	add(mcp.NewTool(
		ToolFilter,
		mcp.WithDescription("Return rows whose column compares to value. eq/neq compare text (numbers numerically); gt/lt/gte/lte need numeric cells; contains is a case-sensitive substring test. Rows keep file order. Use rows plus nextCursor to page."),
		mcp.WithInputSchema[FilterInput](),
		mcp.WithOutputSchema[TableOutput](),
	), mcp.NewTypedToolHandler(t.Filter))

	add(mcp.NewTool(
		ToolSort,
		mcp.WithDescription("Return rows ordered by a column: numerically when both cells are numbers, otherwise by locale-aware text order with digit runs compared by value. Ties keep file order in both directions."),
		mcp.WithInputSchema[SortInput](),
		mcp.WithOutputSchema[TableOutput](),
	), mcp.NewTypedToolHandler(t.Sort))

	add(mcp.NewTool(
		ToolQuery,
		mcp.WithDescription("Return rows for which a boolean expression holds. Columns are variables (numeric text is a number, blank cells are nil); operators include ==, !=, <, >, &&, ||, not, in, contains, startsWith, matches."),
		mcp.WithInputSchema[QueryInput](),
		mcp.WithOutputSchema[TableOutput](),
	), mcp.NewTypedToolHandler(t.Query))

	add(mcp.NewTool(
		ToolWrite,
		mcp.WithDescription("Write headers and rows to a new sheet of an .xlsx workbook, creating the file if needed and replacing a sheet of the same name. Style precedence: per-cell style over rowStyle palette. Global border sides are added to every cell, header included; a side of the same type set by a cell, palette or header style wins."),
		mcp.WithInputSchema[WriteInput](),
		mcp.WithOutputSchema[WriteOutput](),
	), mcp.NewTypedToolHandler(t.Write))
}

// Info handles spreadsheet_info.
func (t *Tools) Info(ctx context.Context, _ mcp.CallToolRequest, in InfoInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	info, err := t.svc.GetFileInfo(ctx, in.FilePath)
	if err != nil {
		return mcperr.FromError(err), nil
	}
	summary := fmt.Sprintf("%d rows, %d columns", info.RowCount, info.ColCount)
	return mcp.NewToolResultStructured(info, summary), nil
}

// View handles view_spreadsheet.
func (t *Tools) View(ctx context.Context, _ mcp.CallToolRequest, in ViewInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	rows := t.limits.PreviewRowLimit
	if in.Rows != nil {
		rows = *in.Rows
	}
	info, err := t.svc.GetFileInfo(ctx, in.FilePath)
	if err != nil {
		return mcperr.FromError(err), nil
	}
	preview, err := t.svc.GetPreview(ctx, in.FilePath, rows)
	if err != nil {
		return mcperr.FromError(err), nil
	}
	out := ViewOutput{FileInfo: info, PreviewData: render.Array(preview.Headers, preview.Data)}
	text := fmt.Sprintf("%d rows, %d columns.\n\n%s", info.RowCount, info.ColCount, render.Markdown(preview.Headers, preview.Data))
	if res := t.checkPayload(text); res != nil {
		return res, nil
	}
	res := mcp.NewToolResultStructured(out, text)
	res.Content = []mcp.Content{mcp.NewTextContent(text)}
	return res, nil
}

// Filter handles filter_spreadsheet.
func (t *Tools) Filter(ctx context.Context, _ mcp.CallToolRequest, in FilterInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	operand, err := filterOperand(in.Value)
	if err != nil {
		return mcperr.FromError(err), nil
	}
	p, err := newPager(ToolFilter, in.FilePath, in.Rows, in.Cursor, in.Column, in.Operator, fmt.Sprint(operand))
	if err != nil {
		return mcperr.FromError(err), nil
	}
	res, err := t.svc.FilterData(ctx, sheets.FilterRequest{
		Path:     in.FilePath,
		Column:   in.Column,
		Operator: query.Operator(in.Operator),
		Operand:  operand,
		Rows:     p.rows,
		Offset:   p.offset,
	})
	if err != nil {
		return mcperr.FromError(err), nil
	}
	return t.page(p, res, in.Encoding), nil
}

// Sort handles sort_spreadsheet.
func (t *Tools) Sort(ctx context.Context, _ mcp.CallToolRequest, in SortInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	order := in.Order
	if order == "" {
		order = string(query.Asc)
	}
	p, err := newPager(ToolSort, in.FilePath, in.Rows, in.Cursor, in.Column, order)
	if err != nil {
		return mcperr.FromError(err), nil
	}
	res, err := t.svc.SortData(ctx, sheets.SortRequest{
		Path:      in.FilePath,
		Column:    in.Column,
		Direction: query.Direction(order),
		Rows:      p.rows,
		Offset:    p.offset,
	})
	if err != nil {
		return mcperr.FromError(err), nil
	}
	return t.page(p, res, in.Encoding), nil
}

// Query handles query_spreadsheet.
func (t *Tools) Query(ctx context.Context, _ mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	p, err := newPager(ToolQuery, in.FilePath, in.Rows, in.Cursor, in.Where)
	if err != nil {
		return mcperr.FromError(err), nil
	}
	res, err := t.svc.QueryData(ctx, sheets.QueryRequest{
		Path:   in.FilePath,
		Where:  in.Where,
		Rows:   p.rows,
		Offset: p.offset,
	})
	if err != nil {
		return mcperr.FromError(err), nil
	}
	return t.page(p, res, in.Encoding), nil
}

// Write handles update_spreadsheet_with_new_sheet.
func (t *Tools) Write(ctx context.Context, _ mcp.CallToolRequest, in WriteInput) (*mcp.CallToolResult, error) {
	if !t.writes {
		return mcperr.New(mcperr.PermissionDenied, "writes are disabled; set MCPSHEETS_ENABLE_WRITES=true"), nil
	}
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}
	var style writer.StyleConfig
	if in.Options != nil {
		style = *in.Options
	}
	err := t.svc.WriteSheet(ctx, sheets.WriteRequest{
		Path:      in.FilePath,
		SheetName: in.SheetName,
		Headers:   in.Headers,
		Rows:      in.Data,
		Style:     style,
	})
	if err != nil {
		return mcperr.FromError(err), nil
	}
	out := WriteOutput{FilePath: in.FilePath, SheetName: in.SheetName, Rows: len(in.Data)}
	return mcp.NewToolResultStructured(out, fmt.Sprintf("wrote sheet %q (%d rows) to %s", in.SheetName, len(in.Data), in.FilePath)), nil
}

// filterOperand accepts the string, number or boolean operands the schema allows.
func filterOperand(v any) (any, error) {
	switch x := v.(type) {
	case string, float64, bool:
		return x, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, mcperr.Errorf(mcperr.Validation, "value %q is not a number", x.String())
		}
		return f, nil
	case int:
		return float64(x), nil
	case nil:
		return nil, mcperr.Errorf(mcperr.Validation, "value is required")
	}
	return nil, mcperr.Errorf(mcperr.Validation, "value must be a string, a number or a boolean")
}

// pager resolves the row window of a paged request, either from rows or from
// a cursor issued for the same tool, path and parameters.
type pager struct {
	tool   string
	path   string
	hash   string
	rows   *int
	offset int
	cursor *pagination.Cursor
}

func newPager(tool, path string, rows *int, token string, params ...string) (*pager, error) {
	p := &pager{tool: tool, path: path, hash: pagination.QueryHash(params...), rows: rows}
	if token == "" {
		return p, nil
	}
	c, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.CursorInvalid, err, "failed to decode cursor")
	}
	if !c.Matches(path, tool, p.hash) {
		return nil, mcperr.Errorf(mcperr.CursorInvalid, "cursor was issued for a different request")
	}
	ps := c.Ps
	p.rows = &ps
	p.offset = c.Off
	p.cursor = c
	return p, nil
}

func (t *Tools) page(p *pager, res sheets.Result, encoding string) *mcp.CallToolResult {
	if p.cursor != nil && p.cursor.Mt != res.ModTime.UnixNano() {
		return mcperr.New(mcperr.CursorInvalid, "file changed since the cursor was issued")
	}

	meta := PageMeta{Total: res.Total, Returned: len(res.Data), Truncated: res.Truncated()}
	if meta.Truncated && p.rows != nil && *p.rows > 0 {
		next, err := pagination.EncodeCursor(pagination.Cursor{
			P:   p.path,
			Op:  p.tool,
			Qh:  p.hash,
			Off: pagination.NextOffset(res.Offset, len(res.Data)),
			Ps:  *p.rows,
			Mt:  res.ModTime.UnixNano(),
		})
		if err != nil {
			return mcperr.FromError(mcperr.Wrap(mcperr.CursorBuildFailed, err, ""))
		}
		meta.NextCursor = next
	}

	out := TableOutput{Encoding: encoding, Meta: meta}
	var text string
	switch encoding {
	case EncodingMarkdown:
		text = render.Markdown(res.Headers, res.Data)
	case EncodingCSV:
		csv, err := render.CSV(res.Headers, res.Data)
		if err != nil {
			return mcperr.FromError(err)
		}
		text = csv
	default:
		out.Encoding = EncodingJSON
		out.Data = render.Array(res.Headers, res.Data)
		b, err := json.Marshal(out.Data)
		if err != nil {
			return mcperr.FromError(err)
		}
		text = string(b)
	}
	if res := t.checkPayload(text); res != nil {
		return res
	}

	result := mcp.NewToolResultStructured(out, text)
	content := []mcp.Content{mcp.NewTextContent(text)}
	if meta.NextCursor != "" {
		content = append(content, mcp.NewTextContent("nextCursor: "+meta.NextCursor))
	}
	result.Content = content
	return result
}

func (t *Tools) checkPayload(text string) *mcp.CallToolResult {
	if t.limits.MaxPayloadBytes <= 0 || len(text) <= t.limits.MaxPayloadBytes {
		return nil
	}
	return mcperr.New(mcperr.PayloadTooLarge, "result is "+strconv.Itoa(len(text))+" bytes, limit "+strconv.Itoa(t.limits.MaxPayloadBytes))
}
