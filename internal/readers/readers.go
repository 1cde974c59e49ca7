package readers

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vinodismyname/mcpsheets/internal/table"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// Format identifies a supported tabular file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	XLS  Format = "xls"
)

var formatsByExt = map[string]Format{
	".csv":  CSV,
	".xlsx": XLSX,
	".xlsm": XLSX,
	".xls":  XLS,
}

// Extensions lists the file extensions Read accepts, lower-case with a leading dot.
func Extensions() []string {
	out := make([]string, 0, len(formatsByExt))
	for ext := range formatsByExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Detect maps a path's extension to a Format.
func Detect(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := formatsByExt[ext]; ok {
		return f, nil
	}
	return "", mcperr.Errorf(mcperr.UnsupportedFormat, "only CSV, XLSX or XLS files are supported, got %q", ext)
}

// Read loads the file at path into a Table. Workbooks contribute their first
// sheet only. Missing paths and non-regular files yield a NOT_FOUND error.
func Read(ctx context.Context, path string) (*table.Table, error) {
	start := time.Now()
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, mcperr.Wrap(mcperr.PermissionDenied, err, path)
		}
		return nil, mcperr.Wrap(mcperr.NotFound, err, "file not found: "+path)
	}
	if !info.Mode().IsRegular() {
		return nil, mcperr.Errorf(mcperr.NotFound, "not a regular file: %s", path)
	}

	format, err := Detect(path)
	if err != nil {
		return nil, err
	}

	var t *table.Table
	switch format {
	case CSV:
		t, err = readCSV(path)
	case XLSX:
		t, err = readXLSX(path)
	case XLS:
		t, err = readXLS(path)
	}
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Str("format", string(format)).
		Int("rows", t.Len()).
		Int("cols", len(t.Headers)).
		Dur("duration", time.Since(start)).
		Msg("table loaded")
	return t, nil
}

// headerRow turns raw header cells into names, padding to width with
// positional placeholders.
func headerRow(raw []string, width int) []string {
	if len(raw) > width {
		width = len(raw)
	}
	headers := make([]string, width)
	for i := range headers {
		name := ""
		if i < len(raw) {
			name = raw[i]
		}
		headers[i] = table.HeaderName(name, i)
	}
	return headers
}
