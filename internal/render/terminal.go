package render

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/vinodismyname/mcpsheets/internal/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF8C42")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// Terminal renders rows as a bordered table for interactive output.
func Terminal(headers []string, rows []table.Row) string {
	cols := columns(headers, rows)
	if len(cols) == 0 {
		return NoData
	}
	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(cols...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = r.Cell(c).Text()
		}
		t.Row(line...)
	}
	return t.String()
}
