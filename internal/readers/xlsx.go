package readers

import (
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/mcpsheets/internal/table"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// xlsxSheet classifies the cells of one worksheet.
type xlsxSheet struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func readXLSX(path string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.ParseError, err, "failed to open workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &table.Table{}, nil
	}
	s := &xlsxSheet{f: f, sheet: sheets[0], dateStyles: map[int]bool{}}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		s.date1904 = *props.Date1904
	}

	rows, err := f.GetRows(s.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, mcperr.Wrap(mcperr.ParseError, err, "failed to read sheet "+s.sheet)
	}
	t, err := s.table(rows)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.ParseError, err, "failed to read sheet "+s.sheet)
	}
	return t, nil
}

func (s *xlsxSheet) table(rows [][]string) (*table.Table, error) {
	if len(rows) == 0 {
		return &table.Table{}, nil
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	headers := headerRow(rows[0], width)
	t := &table.Table{Headers: headers}

	for r := 1; r < len(rows); r++ {
		if blank(rows[r]) {
			continue
		}
		row := table.NewRow(width)
		for c, h := range headers {
			raw := ""
			if c < len(rows[r]) {
				raw = rows[r][c]
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			v, err := s.cell(ref, raw)
			if err != nil {
				return nil, err
			}
			row.Set(h, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// cell classifies one cell. Formulas wrap their cached result; a hyperlink
// wraps the displayed text.
func (s *xlsxSheet) cell(ref, raw string) (table.Value, error) {
	typ, err := s.f.GetCellType(s.sheet, ref)
	if err != nil {
		return table.Value{}, err
	}
	v, err := s.scalar(ref, typ, raw)
	if err != nil {
		return table.Value{}, err
	}

	formula, err := s.f.GetCellFormula(s.sheet, ref)
	if err != nil {
		return table.Value{}, err
	}
	if formula != "" {
		return table.Formula(formula, v), nil
	}

	ok, target, err := s.f.GetCellHyperLink(s.sheet, ref)
	if err != nil {
		return table.Value{}, err
	}
	if ok {
		return table.Hyperlink(v.Text(), target), nil
	}
	return v, nil
}

func (s *xlsxSheet) scalar(ref string, typ excelize.CellType, raw string) (table.Value, error) {
	switch typ {
	case excelize.CellTypeBool:
		return table.Bool(raw == "1" || strings.EqualFold(raw, "TRUE")), nil
	case excelize.CellTypeError:
		return table.Error(raw), nil
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, table.DateTimeLayout, table.DateLayout} {
			if ts, err := time.Parse(layout, raw); err == nil {
				return table.Date(ts), nil
			}
		}
		return table.String(raw), nil
	case excelize.CellTypeFormula:
		if raw == "" {
			return table.Empty(), nil
		}
		return table.String(raw), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return s.text(ref, raw)
	}

	if raw == "" {
		return table.Empty(), nil
	}
	n, ok := table.ParseNumber(raw)
	if !ok {
		return table.String(raw), nil
	}
	if s.isDate(ref) {
		if ts, err := excelize.ExcelDateToTime(n, s.date1904); err == nil {
			return table.Date(ts), nil
		}
	}
	return table.Number(n), nil
}

// text returns a rich text value when the cell carries formatted runs, or a
// plain string otherwise.
func (s *xlsxSheet) text(ref, raw string) (table.Value, error) {
	runs, err := s.f.GetCellRichText(s.sheet, ref)
	if err != nil {
		return table.Value{}, err
	}
	formatted := len(runs) > 1 || (len(runs) == 1 && runs[0].Font != nil)
	if !formatted {
		return table.String(raw), nil
	}
	out := make([]table.Run, len(runs))
	for i, r := range runs {
		out[i] = table.Run{Text: r.Text}
		if r.Font != nil {
			out[i].Bold = r.Font.Bold
			out[i].Italic = r.Font.Italic
		}
	}
	return table.RichText(out...), nil
}

func (s *xlsxSheet) isDate(ref string) bool {
	id, err := s.f.GetCellStyle(s.sheet, ref)
	if err != nil || id == 0 {
		return false
	}
	if known, ok := s.dateStyles[id]; ok {
		return known
	}
	st, err := s.f.GetStyle(id)
	isDate := err == nil && st != nil &&
		(builtinDateFormat(st.NumFmt) || (st.CustomNumFmt != nil && dateFormatCode(*st.CustomNumFmt)))
	s.dateStyles[id] = isDate
	return isDate
}

// builtinDateFormat reports whether a built-in number format id renders a
// date or time.
func builtinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// dateFormatCode reports whether a custom number format code contains date
// or time tokens once quoted literals, escapes and bracketed sections are
// removed.
func dateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case inQuote:
			inQuote = ch != '"'
		case inBracket:
			inBracket = ch != ']'
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		default:
			b.WriteByte(ch)
		}
	}
	stripped := strings.ToLower(b.String())
	// the first section decides; the rest cover negatives and text
	if idx := strings.IndexByte(stripped, ';'); idx >= 0 {
		stripped = stripped[:idx]
	}
	return strings.ContainsAny(stripped, "ydhs")
}
