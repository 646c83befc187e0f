package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/longlodw/tablerow"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var (
	ImportSQLite string
	ImportQuery  string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy the result of a SQLite query into a table",
	Long: `Copy the result of a SQLite query into a table.

The query defaults to every row of the SQLite table named by --table. The
target table is created on first use with the query's result columns.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&ImportSQLite, "sqlite", "", "SQLite database file to read")
	importCmd.Flags().StringVarP(&ImportQuery, "query", "q", "", "Query to run instead of selecting the whole table")
	importCmd.Flags().StringSliceVar(&LoadIndexes, "index", nil, "Columns to index when creating the table")
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := requireTable(); err != nil {
		return err
	}
	if ImportSQLite == "" {
		return fmt.Errorf("--sqlite is required")
	}
	query := ImportQuery
	if query == "" {
		query = fmt.Sprintf("SELECT * FROM %q", TableName)
	}

	src, err := sql.Open("sqlite", ImportSQLite)
	if err != nil {
		return fmt.Errorf("unable to open sqlite database: %w", err)
	}
	defer src.Close()
	frame, err := tablerow.QueryFrame(cmd.Context(), src, query)
	if err != nil {
		return err
	}
	logger.Debug("sqlite query done",
		slog.String("path", ImportSQLite),
		slog.String("query", query),
		slog.Int("rows", frame.Len()))

	db, err := openDB(false)
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.Update(func(tx *tablerow.Tx) error {
		if err := ensureTable(tx, frame.Header()); err != nil {
			return err
		}
		for i, row := range frame.Rows() {
			if _, err := tx.Insert(TableName, row); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("rows imported", slog.String("table", TableName), slog.Int("rows", frame.Len()))
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %s\n", frame.Len(), TableName)
	return nil
}
