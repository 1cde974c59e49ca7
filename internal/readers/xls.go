package readers

import (
	"fmt"
	"os"

	"github.com/yamitzky/xlrd-go/xlrd"

	"github.com/vinodismyname/mcpsheets/internal/table"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// readXLS reads the first sheet of a legacy BIFF workbook. Formula cells
// surface as their cached results.
func readXLS(path string) (*table.Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.NotFound, err, "file not found: "+path)
	}
	book, err := xlrd.OpenWorkbook(path, &xlrd.OpenWorkbookOptions{
		FormattingInfo: true,
		FileContents:   content,
	})
	if err != nil {
		return nil, mcperr.Wrap(mcperr.ParseError, err, "failed to open workbook")
	}
	if book.NSheets == 0 {
		return &table.Table{}, nil
	}
	sheet, err := book.SheetByIndex(0)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.ParseError, err, "failed to read first sheet")
	}
	if sheet.NRows == 0 {
		return &table.Table{}, nil
	}

	raw := make([]string, sheet.NCols)
	for c := 0; c < sheet.NCols; c++ {
		raw[c] = xlsValue(book, sheet, 0, c).Text()
	}
	headers := headerRow(raw, sheet.NCols)
	t := &table.Table{Headers: headers}

	for r := 1; r < sheet.NRows; r++ {
		row := table.NewRow(len(headers))
		empty := true
		for c, h := range headers {
			v := xlsValue(book, sheet, r, c)
			if !v.IsEmpty() && v.Text() != "" {
				empty = false
			}
			row.Set(h, v)
		}
		if empty {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func xlsValue(book *xlrd.Book, sheet *xlrd.Sheet, r, c int) table.Value {
	if c >= sheet.NCols {
		return table.Empty()
	}
	value := sheet.CellValue(r, c)
	switch sheet.CellType(r, c) {
	case xlrd.XL_CELL_EMPTY, xlrd.XL_CELL_BLANK:
		return table.Empty()
	case xlrd.XL_CELL_TEXT:
		return table.String(xlsString(value))
	case xlrd.XL_CELL_NUMBER:
		n, ok := xlsFloat(value)
		if !ok {
			return table.String(xlsString(value))
		}
		if xlsDateCell(book, sheet.CellXFIndex(r, c)) {
			if ts, err := xlrd.XldateAsDatetime(n, book.Datemode); err == nil {
				return table.Date(ts)
			}
		}
		return table.Number(n)
	case xlrd.XL_CELL_BOOLEAN:
		switch b := value.(type) {
		case bool:
			return table.Bool(b)
		case int:
			return table.Bool(b != 0)
		}
		return table.String(xlsString(value))
	case xlrd.XL_CELL_ERROR:
		return table.Error(xlsErrorText(value))
	}
	return table.String(xlsString(value))
}

func xlsDateCell(book *xlrd.Book, xf int) bool {
	if xf < 0 || xf >= len(book.XFList) {
		return false
	}
	key := book.XFList[xf].FormatKey
	if builtinDateFormat(key) {
		return true
	}
	if book.FormatMap == nil {
		return false
	}
	format := book.FormatMap[key]
	if format == nil || format.FormatString == "" {
		return false
	}
	return xlrd.IsDateFormatString(book, format.FormatString)
}

func xlsErrorText(value any) string {
	switch v := value.(type) {
	case byte:
		if text, ok := xlrd.ErrorTextFromCode[v]; ok {
			return text
		}
	case int:
		if text, ok := xlrd.ErrorTextFromCode[byte(v)]; ok {
			return text
		}
	}
	return "#ERROR"
}

func xlsString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return table.FormatNumber(v)
	}
	return fmt.Sprint(value)
}

func xlsFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
