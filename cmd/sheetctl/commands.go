package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/query"
	"github.com/vinodismyname/mcpsheets/internal/render"
	"github.com/vinodismyname/mcpsheets/internal/security"
	"github.com/vinodismyname/mcpsheets/internal/sheets"
	"github.com/vinodismyname/mcpsheets/internal/workbooks"
	"github.com/vinodismyname/mcpsheets/internal/writer"
	"github.com/vinodismyname/mcpsheets/pkg/version"
)

// Output formats.
const (
	formatTable    = "table"
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatCSV      = "csv"
)

type options struct {
	format    string
	allowDirs []string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "sheetctl",
		Short: "Inspect, filter, sort, query and write spreadsheets",
		Long: `sheetctl reads .csv, .xlsx, .xlsm and .xls files and writes styled
sheets into .xlsx workbooks.

Output:
  --format table     Terminal table (default)
  --format markdown  GitHub-flavoured markdown table
  --format json      Nested array, header row first
  --format csv       RFC 4180 CSV

Examples:
  sheetctl preview sales.xlsx -n 5
  sheetctl filter sales.csv --column Region --op eq --value West
  sheetctl query sales.xlsx --where 'Qty > 5 && Region == "West"' --format json
  sheetctl write report.xlsx --sheet Summary --headers Region,Total --data rows.json`,
		Version:       version.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.format {
			case formatTable, formatMarkdown, formatJSON, formatCSV:
			default:
				return fmt.Errorf("invalid format: %s (must be table, markdown, json or csv)", opts.format)
			}
			return config.LoadDotEnv()
		},
	}

	root.PersistentFlags().StringVarP(&opts.format, "format", "f", formatTable, "Output format: table, markdown, json, csv")
	root.PersistentFlags().StringSliceVar(&opts.allowDirs, "allow-dir", nil, "Restrict access to these directories (default: "+config.EnvAllowedDirs+" when set, otherwise unrestricted)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log operations to stderr")

	root.AddCommand(
		newInfoCmd(opts),
		newPreviewCmd(opts),
		newFilterCmd(opts),
		newSortCmd(opts),
		newQueryCmd(opts),
		newWriteCmd(opts),
	)
	return root
}

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Show row count, column count and headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, ctx, err := opts.service(cmd)
			if err != nil {
				return err
			}
			info, err := svc.GetFileInfo(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.format == formatJSON {
				return writeJSON(out, info)
			}
			_, err = fmt.Fprintf(out, "rows: %d\ncolumns: %d\nheaders: %s\n", info.RowCount, info.ColCount, strings.Join(info.Headers, ", "))
			return err
		},
	}
}

func newPreviewCmd(opts *options) *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Show the first rows of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, ctx, err := opts.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.GetPreview(ctx, args[0], rows)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", config.DefaultPreviewRowLimit, "Number of data rows")
	return cmd
}

func newFilterCmd(opts *options) *cobra.Command {
	var (
		column, op, value string
		rows              int
	)
	cmd := &cobra.Command{
		Use:   "filter FILE",
		Short: "Keep rows whose column compares to a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, ctx, err := opts.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.FilterData(ctx, sheets.FilterRequest{
				Path:     args[0],
				Column:   column,
				Operator: query.Operator(op),
				Operand:  value,
				Rows:     limit(cmd, rows),
			})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "Column header")
	cmd.Flags().StringVar(&op, "op", string(query.Eq), "Operator: eq, neq, gt, lt, gte, lte, contains")
	cmd.Flags().StringVar(&value, "value", "", "Operand")
	cmd.Flags().IntVarP(&rows, "rows", "n", 0, "Maximum rows (default: all)")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newSortCmd(opts *options) *cobra.Command {
	var (
		column, order string
		rows          int
	)
	cmd := &cobra.Command{
		Use:   "sort FILE",
		Short: "Order rows by a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, ctx, err := opts.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.SortData(ctx, sheets.SortRequest{
				Path:      args[0],
				Column:    column,
				Direction: query.Direction(order),
				Rows:      limit(cmd, rows),
			})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "Column header")
	cmd.Flags().StringVar(&order, "order", string(query.Asc), "asc or desc")
	cmd.Flags().IntVarP(&rows, "rows", "n", 0, "Maximum rows (default: all)")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newQueryCmd(opts *options) *cobra.Command {
	var (
		where string
		rows  int
	)
	cmd := &cobra.Command{
		Use:   "query FILE",
		Short: "Keep rows for which an expression holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, ctx, err := opts.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.QueryData(ctx, sheets.QueryRequest{Path: args[0], Where: where, Rows: limit(cmd, rows)})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&where, "where", "", `Boolean expression, e.g. 'Qty > 5 && Region == "West"'`)
	cmd.Flags().IntVarP(&rows, "rows", "n", 0, "Maximum rows (default: all)")
	_ = cmd.MarkFlagRequired("where")
	return cmd
}

func newWriteCmd(opts *options) *cobra.Command {
	var (
		sheet     string
		headers   []string
		dataPath  string
		stylePath string
	)
	cmd := &cobra.Command{
		Use:   "write FILE",
		Short: "Write rows to a new sheet of an .xlsx workbook",
		Long: `Write rows to a new sheet, creating the workbook when missing and
replacing a sheet of the same name. --data is a JSON array of objects keyed
by header ("-" reads stdin); --style is a JSON object with headerStyle,
rowStyle and border.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, ctx, err := opts.service(cmd)
			if err != nil {
				return err
			}
			var rows []map[string]any
			if err := readJSON(cmd.InOrStdin(), dataPath, &rows); err != nil {
				return fmt.Errorf("read data: %w", err)
			}
			var style writer.StyleConfig
			if stylePath != "" {
				if err := readJSON(cmd.InOrStdin(), stylePath, &style); err != nil {
					return fmt.Errorf("read style: %w", err)
				}
			}
			err = svc.WriteSheet(ctx, sheets.WriteRequest{
				Path:      args[0],
				SheetName: sheet,
				Headers:   headers,
				Rows:      rows,
				Style:     style,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote sheet %q (%d rows) to %s\n", sheet, len(rows), args[0])
			return err
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name")
	cmd.Flags().StringSliceVar(&headers, "headers", nil, "Comma-separated header row")
	cmd.Flags().StringVar(&dataPath, "data", "", "JSON rows file, or - for stdin")
	cmd.Flags().StringVar(&stylePath, "style", "", "JSON style file")
	_ = cmd.MarkFlagRequired("sheet")
	_ = cmd.MarkFlagRequired("headers")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// service builds a Service scoped to the configured directories and a
// context carrying the command logger.
func (o *options) service(cmd *cobra.Command) (*sheets.Service, context.Context, error) {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).
		With().Timestamp().Str("service", "sheetctl").Logger()
	ctx := logger.WithContext(cmd.Context())

	dirs := o.allowDirs
	if len(dirs) == 0 {
		settings, err := config.FromEnv()
		if err != nil {
			return nil, nil, err
		}
		dirs = settings.AllowedDirs
	}
	if len(dirs) == 0 {
		return sheets.NewService(nil), ctx, nil
	}
	sec, err := security.NewManager(dirs, nil)
	if err != nil {
		return nil, nil, err
	}
	return sheets.NewService(workbooks.NewManager(nil, sec)), ctx, nil
}

// limit maps --rows to a row cap; unset means every row.
func limit(cmd *cobra.Command, rows int) *int {
	if !cmd.Flags().Changed("rows") {
		return nil
	}
	return &rows
}

func (o *options) print(w io.Writer, res sheets.Result) error {
	var (
		text string
		err  error
	)
	switch o.format {
	case formatMarkdown:
		text = render.Markdown(res.Headers, res.Data)
	case formatJSON:
		return writeJSON(w, render.Array(res.Headers, res.Data))
	case formatCSV:
		text, err = render.CSV(res.Headers, res.Data)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	default:
		text = render.Terminal(res.Headers, res.Data)
	}
	if _, err := fmt.Fprintln(w, text); err != nil {
		return err
	}
	if res.Truncated() && o.format == formatTable {
		_, err = fmt.Fprintf(w, "%d of %d rows\n", len(res.Data), res.Total)
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}

func readJSON(stdin io.Reader, path string, v any) error {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(v)
}
