// Package writer adds a styled sheet to an open excelize workbook.
package writer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// DefaultSheet is the sheet excelize.NewFile creates.
const DefaultSheet = "Sheet1"

// Cell object keys accepted in row data.
const (
	keyValue     = "value"
	keyFormula   = "formula"
	keyStyle     = "style"
	keyHyperlink = "hyperlink"
)

// WriteSheet writes headers and rows to sheetName, replacing any sheet of the
// same name, and makes it the active sheet. Row maps are keyed by header. A
// cell is either a scalar or an object carrying value, formula, style and
// hyperlink. Nothing is saved; the caller owns persistence.
func WriteSheet(f *excelize.File, sheetName string, headers []string, rows []map[string]any, cfg StyleConfig) error {
	if err := replaceSheet(f, sheetName); err != nil {
		return err
	}

	styles := newStyleCache(f)
	headerStyle := withBorder(MergeStyles(cfg.Header), cfg.Border)
	for c, h := range headers {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return mcperr.Wrap(mcperr.WriteFailed, err, "header cell")
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return mcperr.Wrap(mcperr.WriteFailed, err, "write header "+cell)
		}
		if err := applyStyle(f, styles, sheetName, cell, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range rows {
		base := MergeStyles(cfg.RowStyle(r))
		for c, h := range headers {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return mcperr.Wrap(mcperr.WriteFailed, err, "data cell")
			}
			if err := writeCell(f, styles, sheetName, cell, row[h], base, cfg.Border); err != nil {
				return err
			}
		}
	}
	return nil
}

// DropDefaultSheet removes the empty Sheet1 of a freshly created workbook
// once keep exists, and re-activates keep.
func DropDefaultSheet(f *excelize.File, keep string) error {
	if keep == DefaultSheet {
		return nil
	}
	if idx, err := f.GetSheetIndex(DefaultSheet); err != nil || idx == -1 {
		return nil
	}
	rows, err := f.GetRows(DefaultSheet)
	if err != nil || len(rows) > 0 {
		return nil
	}
	if err := f.DeleteSheet(DefaultSheet); err != nil {
		return mcperr.Wrap(mcperr.WriteFailed, err, "remove default sheet")
	}
	return activate(f, keep)
}

// replaceSheet leaves an empty sheet called name in place of any existing
// one. excelize refuses to delete a workbook's only sheet, so an existing
// sheet is swapped out through a temporary name.
func replaceSheet(f *excelize.File, name string) error {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return mcperr.Wrap(mcperr.Validation, err, "invalid sheet name")
	}
	if idx == -1 {
		if _, err := f.NewSheet(name); err != nil {
			return mcperr.Wrap(mcperr.WriteFailed, err, "create sheet "+name)
		}
		return activate(f, name)
	}

	tmp := "tmp-" + uuid.NewString()[:8]
	if _, err := f.NewSheet(tmp); err != nil {
		return mcperr.Wrap(mcperr.WriteFailed, err, "create sheet")
	}
	if err := f.DeleteSheet(name); err != nil {
		return mcperr.Wrap(mcperr.WriteFailed, err, "delete sheet "+name)
	}
	if err := f.SetSheetName(tmp, name); err != nil {
		return mcperr.Wrap(mcperr.WriteFailed, err, "rename sheet "+name)
	}
	return activate(f, name)
}

func activate(f *excelize.File, name string) error {
	idx, err := f.GetSheetIndex(name)
	if err != nil || idx == -1 {
		return mcperr.Errorf(mcperr.WriteFailed, "sheet %q missing after write", name)
	}
	f.SetActiveSheet(idx)
	return nil
}

func writeCell(f *excelize.File, styles *styleCache, sheet, cell string, raw any, base Style, border BorderSpec) error {
	obj, ok := raw.(map[string]any)
	if !ok {
		if err := f.SetCellValue(sheet, cell, scalar(raw)); err != nil {
			return mcperr.Wrap(mcperr.WriteFailed, err, "write "+cell)
		}
		return applyStyle(f, styles, sheet, cell, withBorder(base, border))
	}

	for k := range obj {
		switch k {
		case keyValue, keyFormula, keyStyle, keyHyperlink:
		default:
			return mcperr.Errorf(mcperr.Validation, "cell %s: unknown key %q", cell, k)
		}
	}

	value := scalar(obj[keyValue])
	link, _ := obj[keyHyperlink].(string)
	if value == nil && link != "" {
		value = link
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return mcperr.Wrap(mcperr.WriteFailed, err, "write "+cell)
	}

	if raw, ok := obj[keyFormula]; ok {
		formula, isStr := raw.(string)
		if !isStr {
			return mcperr.Errorf(mcperr.Validation, "cell %s: formula must be a string", cell)
		}
		formula = strings.TrimPrefix(strings.TrimSpace(formula), "=")
		if formula != "" {
			if err := f.SetCellFormula(sheet, cell, formula); err != nil {
				return mcperr.Wrap(mcperr.WriteFailed, err, "formula "+cell)
			}
		}
	}

	if link != "" {
		display := fmt.Sprint(value)
		if err := f.SetCellHyperLink(sheet, cell, link, linkType(link), excelize.HyperlinkOpts{Display: &display}); err != nil {
			return mcperr.Wrap(mcperr.WriteFailed, err, "hyperlink "+cell)
		}
	}

	style := base
	if raw, ok := obj[keyStyle]; ok && raw != nil {
		own, isMap := asMap(raw)
		if !isMap {
			return mcperr.Errorf(mcperr.Validation, "cell %s: style must be an object", cell)
		}
		style = MergeStyles(base, own)
	}
	return applyStyle(f, styles, sheet, cell, withBorder(style, border))
}

func applyStyle(f *excelize.File, styles *styleCache, sheet, cell string, s Style) error {
	id, err := styles.id(s)
	if err != nil {
		return fmt.Errorf("cell %s: %w", cell, err)
	}
	if id == 0 {
		return nil
	}
	if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
		return mcperr.Wrap(mcperr.WriteFailed, err, "style "+cell)
	}
	return nil
}

// scalar unwraps JSON numbers; other decoded JSON scalars pass through.
func scalar(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// linkType picks excelize's link kind: sheet references such as
// "Sheet2!A1" are locations, everything else is external.
func linkType(link string) string {
	if strings.Contains(link, "://") || strings.HasPrefix(link, "mailto:") {
		return "External"
	}
	if strings.Contains(link, "!") {
		return "Location"
	}
	return "External"
}
