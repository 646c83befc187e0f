package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/longlodw/tablerow"
	"github.com/spf13/cobra"
)

var LoadIndexes []string

var loadCmd = &cobra.Command{
	Use:   "load [file|-]",
	Short: "Insert JSON lines as rows",
	Long: `Insert every JSON object of a JSON lines file as one row.

The table is created on first use with the keys of the first object as its
columns, in the order they appear. Every later object must have exactly
those keys.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringSliceVar(&LoadIndexes, "index", nil, "Columns to index when creating the table")
}

func runLoad(cmd *cobra.Command, args []string) error {
	if err := requireTable(); err != nil {
		return err
	}
	filename := "-"
	if len(args) > 0 {
		filename = args[0]
	}
	var in io.Reader = os.Stdin
	if filename != "-" {
		f, err := os.Open(filename)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()

	var loaded int
	err = db.Update(func(tx *tablerow.Tx) error {
		n, err := loadRows(tx, in)
		loaded = n
		return err
	})
	if err != nil {
		return err
	}
	logger.Info("rows loaded", slog.String("table", TableName), slog.Int("rows", loaded))
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows into %s\n", loaded, TableName)
	return nil
}

// ensureTable creates the target table with columns and the --index
// columns unless it already exists.
func ensureTable(tx *tablerow.Tx, columns []string) error {
	tables, err := tx.Tables()
	if err != nil {
		return err
	}
	if slices.Contains(tables, TableName) {
		return nil
	}
	return tx.CreateTable(TableName, columns, LoadIndexes...)
}

func loadRows(tx *tablerow.Tx, in io.Reader) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	n := 0
	for line := 1; scanner.Scan(); line++ {
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		rec := tablerow.NewRecord()
		if err := rec.UnmarshalJSON(data); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if n == 0 {
			if err := ensureTable(tx, slices.Collect(rec.Keys())); err != nil {
				return n, err
			}
		}
		if _, err := tx.Insert(TableName, rec); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	return n, scanner.Err()
}
