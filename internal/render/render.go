package render

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/vinodismyname/mcpsheets/internal/table"
)

// NoData is the table text emitted for a result without columns.
const NoData = "(no data)"

// cellEscaper reserves <br> for line breaks: a literal "<" in cell text is
// written as \<.
var cellEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"<", `\<`,
	"\r\n", "<br>",
	"\n", "<br>",
	"\r", "<br>",
)

// Markdown renders a pipe-delimited table: a header line, a "---" separator
// line and one line per row. Hyperlinks with both text and target render as
// [text](target). Missing cells render as empty segments.
func Markdown(headers []string, rows []table.Row) string {
	cols := columns(headers, rows)
	if len(cols) == 0 {
		return NoData
	}

	var b strings.Builder
	line := make([]string, len(cols))
	for i, h := range cols {
		line[i] = cellEscaper.Replace(h)
	}
	writeLine(&b, line)
	for i := range line {
		line[i] = "---"
	}
	writeLine(&b, line)

	for _, r := range rows {
		for i, c := range cols {
			line[i] = markdownCell(r.Cell(c))
		}
		writeLine(&b, line)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func writeLine(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}

func markdownCell(v table.Value) string {
	if v.Kind == table.KindHyperlink && v.Str != "" && v.Target != "" {
		return "[" + cellEscaper.Replace(v.Str) + "](" + cellEscaper.Replace(v.Target) + ")"
	}
	return cellEscaper.Replace(v.Text())
}

// Array renders rows as a nested array whose first element is the header
// list. An input with neither headers nor rows renders as an empty array.
// Numbers and booleans keep their type; missing cells become "".
func Array(headers []string, rows []table.Row) [][]any {
	cols := columns(headers, rows)
	if len(cols) == 0 && len(rows) == 0 {
		return [][]any{}
	}
	out := make([][]any, 0, len(rows)+1)
	head := make([]any, len(cols))
	for i, h := range cols {
		head[i] = h
	}
	out = append(out, head)
	for _, r := range rows {
		line := make([]any, len(cols))
		for i, c := range cols {
			line[i] = r.Cell(c).Native()
		}
		out = append(out, line)
	}
	return out
}

// CSV renders rows as comma-separated text with a header record.
func CSV(headers []string, rows []table.Row) (string, error) {
	cols := columns(headers, rows)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(cols) > 0 {
		if err := w.Write(cols); err != nil {
			return "", err
		}
	}
	rec := make([]string, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			rec[i] = r.Cell(c).Text()
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// columns returns headers, or the first row's keys when headers is empty.
func columns(headers []string, rows []table.Row) []string {
	if len(headers) > 0 {
		return headers
	}
	if len(rows) > 0 {
		return rows[0].Keys()
	}
	return nil
}
