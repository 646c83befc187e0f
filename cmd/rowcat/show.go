package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/longlodw/tablerow"
	"github.com/longlodw/tablerow/filter"
	"github.com/longlodw/tablerow/format"
	"github.com/spf13/cobra"
)

var (
	ShowFormat string
	ShowWhere  string
	ShowFilter string
	ShowLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the rows of a table",
	Long: `Print the rows of a table.

Formats:
  dict    one {'key': value, ...} line per row (default)
  pretty  one entry per line
  table   aligned columns
  json    one JSON object per line

--where COL=VALUE reads through the index on COL. VALUE is parsed as JSON
when it is valid JSON and taken as a string otherwise.

--filter takes a predicate over the row's columns:
  age >= 30 AND NOT (name = 'bob' OR tags CONTAINS 'x')
A filter that is a single equality on an indexed column reads through the
index.`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&ShowFormat, "format", "f", "dict", "Output format: dict, pretty, table or json")
	showCmd.Flags().StringVarP(&ShowWhere, "where", "w", "", "Only rows with COL=VALUE (COL must be indexed)")
	showCmd.Flags().StringVar(&ShowFilter, "filter", "", "Only rows matching a predicate such as \"age > 30 AND name != 'bob'\"")
	showCmd.Flags().IntVarP(&ShowLimit, "limit", "n", 0, "Print at most this many rows")
}

func runShow(cmd *cobra.Command, args []string) error {
	if err := requireTable(); err != nil {
		return err
	}
	formatter, err := format.ByName(ShowFormat)
	if err != nil {
		return err
	}

	db, err := openDB(true)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.View(func(tx *tablerow.Tx) error {
		seq, err := selectRows(tx)
		if err != nil {
			return err
		}
		var rows []tablerow.Row
		for row, err := range seq {
			if err != nil {
				return err
			}
			rows = append(rows, row)
			if ShowLimit > 0 && len(rows) >= ShowLimit {
				break
			}
		}
		// rows read from the transaction, so format before it closes
		return formatter.Format(rows, cmd.OutOrStdout())
	})
}

func selectRows(tx *tablerow.Tx) (iter.Seq2[tablerow.Row, error], error) {
	var expr filter.Expr
	if ShowFilter != "" {
		var err error
		if expr, err = filter.Parse(ShowFilter); err != nil {
			return nil, fmt.Errorf("--filter: %w", err)
		}
	}
	seq, err := sourceRows(tx, expr)
	if err != nil || expr == nil {
		return seq, err
	}
	return filter.Rows(expr, seq), nil
}

func sourceRows(tx *tablerow.Tx, expr filter.Expr) (iter.Seq2[tablerow.Row, error], error) {
	if ShowWhere != "" {
		column, raw, ok := strings.Cut(ShowWhere, "=")
		if !ok {
			return nil, fmt.Errorf("--where must look like COL=VALUE, got %q", ShowWhere)
		}
		return tx.Lookup(TableName, column, parseValue(raw))
	}
	if expr != nil {
		if column, value, ok := filter.IndexHint(expr); ok {
			table, err := tx.Table(TableName)
			if err != nil {
				return nil, err
			}
			if slices.Contains(table.Indexed, column) {
				logger.Debug("filter uses index", slog.String("column", column))
				return tx.Lookup(TableName, column, value)
			}
		}
	}
	return tx.Scan(TableName)
}

func parseValue(raw string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return v
}
