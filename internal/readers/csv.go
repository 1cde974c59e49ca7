package readers

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/vinodismyname/mcpsheets/internal/table"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

const utf8BOM = "\ufeff"

// readCSV treats the first record as headers, kept verbatim: a blank CSV
// header stays blank. Blank lines are skipped and every cell is kept as a
// string. A record whose field count differs from
// the header is a parse error.
func readCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.NotFound, err, "file not found: "+path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	first, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &table.Table{}, nil
	}
	if err != nil {
		return nil, mcperr.Wrap(mcperr.ParseError, err, "CSV parse error")
	}
	if len(first) > 0 {
		first[0] = strings.TrimPrefix(first[0], utf8BOM)
	}
	headers := slices.Clone(first)

	t := &table.Table{Headers: headers}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, mcperr.Wrap(mcperr.ParseError, err, "CSV parse error")
		}
		row := table.NewRow(len(headers))
		for i, h := range headers {
			row.Set(h, table.String(rec[i]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
