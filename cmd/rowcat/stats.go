package main

import (
	"fmt"
	"strings"

	"github.com/longlodw/tablerow"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Describe the tables of a store",
	Long: `List every table with its columns, indexed columns and row count,
followed by the store statistics of this run.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := openDB(true)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	err = db.View(func(tx *tablerow.Tx) error {
		names, err := tx.Tables()
		if err != nil {
			return err
		}
		for _, name := range names {
			table, err := tx.Table(name)
			if err != nil {
				return err
			}
			seq, err := tx.Scan(name)
			if err != nil {
				return err
			}
			count := 0
			for _, err := range seq {
				if err != nil {
					return err
				}
				count++
			}
			fmt.Fprintf(out, "%s: %d rows\n", table.Name, count)
			fmt.Fprintf(out, "  columns: %s\n", strings.Join(table.Columns, ", "))
			if len(table.Indexed) > 0 {
				fmt.Fprintf(out, "  indexed: %s\n", strings.Join(table.Indexed, ", "))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, db.Stats().String())
	return nil
}
