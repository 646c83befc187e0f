package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/longlodw/tablerow"
	"github.com/longlodw/tablerow/internal/logging"
	"github.com/spf13/cobra"
)

var (
	DBPath    string
	TableName string
	CodecName string
	LogLevel  string
	SeqURL    string

	logger   *slog.Logger
	closeLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "rowcat",
	Short: "Load and print table rows",
	Long: `rowcat stores JSON lines or SQLite query results as table rows and
prints them back in several forms.

Examples:
  rowcat load --db users.db --table users --index name users.jsonl
  rowcat show --db users.db --table users --format table
  rowcat show --db users.db --table users --where name=alice
  rowcat import --db users.db --table users --sqlite app.sqlite
  rowcat stats --db users.db`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(LogLevel)
		if err != nil {
			return err
		}
		logger, closeLog = logging.Setup(os.Stderr, level, SeqURL)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&DBPath, "db", "rows.db", "Path of the store file")
	rootCmd.PersistentFlags().StringVarP(&TableName, "table", "t", "", "Table to read or write")
	rootCmd.PersistentFlags().StringVar(&CodecName, "codec", "msgpack", "Column codec: msgpack, json or gob")
	rootCmd.PersistentFlags().StringVar(&LogLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&SeqURL, "seq-url", "", "Also ship logs to this Seq server")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statsCmd)
}

func openDB(readOnly bool) (*tablerow.DB, error) {
	codec, ok := tablerow.CodecByName(CodecName)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", CodecName)
	}
	return tablerow.OpenDB(DBPath, 0600, &tablerow.Options{
		Bolt: &tablerow.DBOptions{
			Timeout:  2 * time.Second,
			ReadOnly: readOnly,
		},
		Codec:  codec,
		Logger: logger,
	})
}

func requireTable() error {
	if TableName == "" {
		return fmt.Errorf("--table is required")
	}
	return nil
}
