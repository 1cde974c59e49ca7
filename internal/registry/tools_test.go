package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/mcpsheets/internal/runtime"
	"github.com/vinodismyname/mcpsheets/internal/sheets"
	"github.com/vinodismyname/mcpsheets/internal/writer"
)

// CSV cells stay strings; numeric comparison still applies to numeric text.
const fruitCSV = "ID,Name,Value\n1,Apple,10\n2,Banana,20\n3,Cherry,15\n"

var bg = mcp.CallToolRequest{}

func newTools(t *testing.T) *Tools {
	t.Helper()
	return NewTools(sheets.NewService(nil), runtime.NewLimits(0, 0), true)
}

func fixture(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fruit.csv")
	require.NoError(t, os.WriteFile(p, []byte(fruitCSV), 0o644))
	return p
}

func ptr(n int) *int { return &n }

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func requireToolError(t *testing.T, res *mcp.CallToolResult, code string) {
	t.Helper()
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(text(t, res), code+":"), text(t, res))
}

func TestInfoTool(t *testing.T) {
	res, err := newTools(t).Info(context.Background(), bg, InfoInput{FilePath: fixture(t)})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, sheets.FileInfo{RowCount: 3, ColCount: 3, Headers: []string{"ID", "Name", "Value"}}, res.StructuredContent)
}

func TestViewTool(t *testing.T) {
	tools := newTools(t)
	path := fixture(t)

	res, err := tools.View(context.Background(), bg, ViewInput{FilePath: path, Rows: ptr(2)})
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := res.StructuredContent.(ViewOutput)
	require.Equal(t, [][]any{{"ID", "Name", "Value"}, {"1", "Apple", "10"}, {"2", "Banana", "20"}}, out.PreviewData)
	require.Equal(t, 3, out.FileInfo.RowCount)
	require.Contains(t, text(t, res), "| ID | Name | Value |")

	// Default preview size covers the whole fixture.
	res, err = tools.View(context.Background(), bg, ViewInput{FilePath: path})
	require.NoError(t, err)
	require.Len(t, res.StructuredContent.(ViewOutput).PreviewData, 4)

	res, err = tools.View(context.Background(), bg, ViewInput{FilePath: path, Rows: ptr(-1)})
	require.NoError(t, err)
	requireToolError(t, res, "VALIDATION")
}

func TestFilterToolEncodings(t *testing.T) {
	tools := newTools(t)
	path := fixture(t)

	res, err := tools.Filter(context.Background(), bg, FilterInput{FilePath: path, Column: "Value", Operator: "gt", Value: 15.0})
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := res.StructuredContent.(TableOutput)
	require.Equal(t, EncodingJSON, out.Encoding)
	require.Equal(t, [][]any{{"ID", "Name", "Value"}, {"2", "Banana", "20"}}, out.Data)
	require.Equal(t, PageMeta{Total: 1, Returned: 1}, out.Meta)
	require.JSONEq(t, `[["ID","Name","Value"],["2","Banana","20"]]`, text(t, res))

	res, err = tools.Filter(context.Background(), bg, FilterInput{FilePath: path, Column: "Name", Operator: "contains", Value: "an", Encoding: EncodingMarkdown})
	require.NoError(t, err)
	require.Equal(t, "| ID | Name | Value |\n| --- | --- | --- |\n| 2 | Banana | 20 |", text(t, res))
	require.Nil(t, res.StructuredContent.(TableOutput).Data)

	res, err = tools.Filter(context.Background(), bg, FilterInput{FilePath: path, Column: "ID", Operator: "eq", Value: "3", Encoding: EncodingCSV})
	require.NoError(t, err)
	require.Equal(t, "ID,Name,Value\n3,Cherry,15\n", text(t, res))

	// A boolean operand reads "1"/"0" and true/false cells as booleans.
	res, err = tools.Filter(context.Background(), bg, FilterInput{FilePath: path, Column: "ID", Operator: "eq", Value: true, Encoding: EncodingCSV})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, "ID,Name,Value\n1,Apple,10\n", text(t, res))
}

func TestFilterToolRejectsBadInput(t *testing.T) {
	tools := newTools(t)
	path := fixture(t)

	res, err := tools.Filter(context.Background(), bg, FilterInput{FilePath: path, Column: "Value", Operator: "like", Value: 1.0})
	require.NoError(t, err)
	requireToolError(t, res, "VALIDATION")

	res, err = tools.Filter(context.Background(), bg, FilterInput{FilePath: path, Column: "Value", Operator: "eq", Value: []any{1.0}})
	require.NoError(t, err)
	requireToolError(t, res, "VALIDATION")

	res, err = tools.Filter(context.Background(), bg, FilterInput{FilePath: filepath.Join(t.TempDir(), "gone.csv"), Column: "Value", Operator: "eq", Value: 1.0})
	require.NoError(t, err)
	requireToolError(t, res, "NOT_FOUND")
}

func TestSortToolPagesWithCursor(t *testing.T) {
	tools := newTools(t)
	path := fixture(t)

	in := SortInput{FilePath: path, Column: "Value", Order: "desc", Rows: ptr(2)}
	res, err := tools.Sort(context.Background(), bg, in)
	require.NoError(t, err)
	first := res.StructuredContent.(TableOutput)
	require.Equal(t, [][]any{{"ID", "Name", "Value"}, {"2", "Banana", "20"}, {"3", "Cherry", "15"}}, first.Data)
	require.True(t, first.Meta.Truncated)
	require.Equal(t, 3, first.Meta.Total)
	require.NotEmpty(t, first.Meta.NextCursor)
	require.Len(t, res.Content, 2)

	res, err = tools.Sort(context.Background(), bg, SortInput{FilePath: path, Column: "Value", Order: "desc", Cursor: first.Meta.NextCursor})
	require.NoError(t, err)
	second := res.StructuredContent.(TableOutput)
	require.Equal(t, [][]any{{"ID", "Name", "Value"}, {"1", "Apple", "10"}}, second.Data)
	require.False(t, second.Meta.Truncated)
	require.Empty(t, second.Meta.NextCursor)

	// A cursor only resumes the request that issued it.
	res, err = tools.Sort(context.Background(), bg, SortInput{FilePath: path, Column: "Name", Cursor: first.Meta.NextCursor})
	require.NoError(t, err)
	requireToolError(t, res, "CURSOR_INVALID")

	res, err = tools.Sort(context.Background(), bg, SortInput{FilePath: path, Column: "Value", Order: "desc", Cursor: "garbage"})
	require.NoError(t, err)
	requireToolError(t, res, "CURSOR_INVALID")
}

func TestCursorRejectedAfterFileChanges(t *testing.T) {
	tools := newTools(t)
	path := fixture(t)

	res, err := tools.Query(context.Background(), bg, QueryInput{FilePath: path, Where: "Value >= 10", Rows: ptr(1)})
	require.NoError(t, err)
	next := res.StructuredContent.(TableOutput).Meta.NextCursor
	require.NotEmpty(t, next)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	res, err = tools.Query(context.Background(), bg, QueryInput{FilePath: path, Where: "Value >= 10", Cursor: next})
	require.NoError(t, err)
	requireToolError(t, res, "CURSOR_INVALID")
}

func TestQueryToolBadExpression(t *testing.T) {
	res, err := newTools(t).Query(context.Background(), bg, QueryInput{FilePath: fixture(t), Where: "Value >"})
	require.NoError(t, err)
	requireToolError(t, res, "VALIDATION")
}

func TestWriteTool(t *testing.T) {
	tools := newTools(t)
	path := filepath.Join(t.TempDir(), "out.xlsx")

	res, err := tools.Write(context.Background(), bg, WriteInput{
		FilePath:  path,
		SheetName: "Summary",
		Headers:   []string{"Region", "Total"},
		Data:      []map[string]any{{"Region": "West", "Total": 10.0}},
		Options:   &writer.StyleConfig{Header: writer.Style{"font": map[string]any{"bold": true}}},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, WriteOutput{FilePath: path, SheetName: "Summary", Rows: 1}, res.StructuredContent)

	info, err := tools.Info(context.Background(), bg, InfoInput{FilePath: path})
	require.NoError(t, err)
	require.Equal(t, 1, info.StructuredContent.(sheets.FileInfo).RowCount)

	res, err = tools.Write(context.Background(), bg, WriteInput{FilePath: path, SheetName: "Bad/Name", Headers: []string{"a"}})
	require.NoError(t, err)
	requireToolError(t, res, "VALIDATION")
}

func TestWriteToolDisabled(t *testing.T) {
	tools := NewTools(sheets.NewService(nil), runtime.NewLimits(0, 0), false)
	path := filepath.Join(t.TempDir(), "out.xlsx")

	res, err := tools.Write(context.Background(), bg, WriteInput{FilePath: path, SheetName: "S", Headers: []string{"a"}})
	require.NoError(t, err)
	requireToolError(t, res, "PERMISSION_DENIED")
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestPayloadLimit(t *testing.T) {
	limits := runtime.NewLimits(0, 0)
	limits.MaxPayloadBytes = 10
	tools := NewTools(sheets.NewService(nil), limits, true)

	res, err := tools.Sort(context.Background(), bg, SortInput{FilePath: fixture(t), Column: "ID"})
	require.NoError(t, err)
	requireToolError(t, res, "PAYLOAD_TOO_LARGE")
}

func TestRegisterSheetTools(t *testing.T) {
	srv := server.NewMCPServer("test", "0")
	reg := New()
	RegisterSheetTools(srv, reg, newTools(t))

	tools, err := reg.Tools(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	require.Equal(t, []string{ToolFilter, ToolQuery, ToolSort, ToolInfo, ToolWrite, ToolView}, names)

	filtered := NewWriteToolFilter(false).FilterTools(context.Background(), tools)
	require.Len(t, filtered, len(tools)-1)
	for _, tool := range filtered {
		require.False(t, IsWriteTool(tool.Name))
	}
	require.Len(t, NewWriteToolFilter(true).FilterTools(context.Background(), tools), len(tools))
}
