package tablerow

import (
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

func openStatsDB(t *testing.T, name string) *DB {
	t.Helper()
	db, err := OpenDB(t.TempDir()+"/"+name, 0600, nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertValues(t *testing.T, tx *Tx, table string, values ...any) uint64 {
	t.Helper()
	tbl, err := tx.Table(table)
	if err != nil {
		t.Fatalf("Table(%s) failed: %v", table, err)
	}
	rec, err := RecordOf(tbl.Columns, values)
	if err != nil {
		t.Fatalf("RecordOf failed: %v", err)
	}
	id, err := tx.Insert(table, rec)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return id
}

func TestStats_TransactionCounts(t *testing.T) {
	db := openStatsDB(t, "test_stats_tx.db")

	// Initial stats
	stats := db.Stats()
	if stats.ReadTxTotal != 0 {
		t.Errorf("expected ReadTxTotal=0, got %d", stats.ReadTxTotal)
	}
	if stats.WriteTxTotal != 0 {
		t.Errorf("expected WriteTxTotal=0, got %d", stats.WriteTxTotal)
	}

	if err := db.View(func(tx *Tx) error { return nil }); err != nil {
		t.Fatalf("View failed: %v", err)
	}
	stats = db.Stats()
	if stats.ReadTxTotal != 1 {
		t.Errorf("expected ReadTxTotal=1 after View, got %d", stats.ReadTxTotal)
	}

	if err := db.Update(func(tx *Tx) error { return nil }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	stats = db.Stats()
	if stats.WriteTxTotal != 1 {
		t.Errorf("expected WriteTxTotal=1 after Update, got %d", stats.WriteTxTotal)
	}
	if stats.TxCommitTotal != 2 {
		t.Errorf("expected TxCommitTotal=2 after View and Update, got %d", stats.TxCommitTotal)
	}

	// Manual transaction
	tx, err := db.Begin(true)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if got := db.Stats().TxOpenCount; got != 1 {
		t.Errorf("expected TxOpenCount=1 during manual tx, got %d", got)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	stats = db.Stats()
	if stats.TxOpenCount != 0 {
		t.Errorf("expected TxOpenCount=0 after commit, got %d", stats.TxOpenCount)
	}
	if stats.TxCommitTotal != 3 {
		t.Errorf("expected TxCommitTotal=3, got %d", stats.TxCommitTotal)
	}

	// A rollback after commit is not counted twice
	tx.Rollback()
	if got := db.Stats().TxRollbackTotal; got != 0 {
		t.Errorf("expected TxRollbackTotal=0, got %d", got)
	}

	tx, err = db.Begin(false)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if got := db.Stats().TxRollbackTotal; got != 1 {
		t.Errorf("expected TxRollbackTotal=1, got %d", got)
	}

	// A failing managed transaction rolls back
	db.Update(func(tx *Tx) error { return ErrNoColumns })
	if got := db.Stats().TxRollbackTotal; got != 2 {
		t.Errorf("expected TxRollbackTotal=2 after failed Update, got %d", got)
	}
}

func TestStats_RowCounts(t *testing.T) {
	db := openStatsDB(t, "test_stats_rows.db")

	var ids []uint64
	err := db.Update(func(tx *Tx) error {
		if err := tx.CreateTable("users", []string{"id", "name", "age"}, "age"); err != nil {
			return err
		}
		for i := range 5 {
			ids = append(ids, insertValues(t, tx, "users", i, "user", i*10))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	stats := db.Stats()
	if stats.RowsInserted != 5 {
		t.Errorf("expected RowsInserted=5, got %d", stats.RowsInserted)
	}
	if stats.TablesCreated != 1 {
		t.Errorf("expected TablesCreated=1, got %d", stats.TablesCreated)
	}

	err = db.Update(func(tx *Tx) error {
		for _, id := range ids[:2] {
			if err := tx.Delete("users", id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := db.Stats().RowsDeleted; got != 2 {
		t.Errorf("expected RowsDeleted=2, got %d", got)
	}

	err = db.Update(func(tx *Tx) error {
		return tx.DropTable("users")
	})
	if err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if got := db.Stats().TablesDropped; got != 1 {
		t.Errorf("expected TablesDropped=1, got %d", got)
	}
}

func TestStats_ScanCounts(t *testing.T) {
	db := openStatsDB(t, "test_stats_scans.db")

	err := db.Update(func(tx *Tx) error {
		if err := tx.CreateTable("items", []string{"id", "kind"}, "id"); err != nil {
			return err
		}
		for i := range 10 {
			insertValues(t, tx, "items", i, "item")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	err = db.View(func(tx *Tx) error {
		seq, err := tx.Lookup("items", "id", 5)
		if err != nil {
			return err
		}
		records, err := Collect(seq)
		if err != nil {
			return err
		}
		if len(records) != 1 {
			t.Errorf("expected 1 result, got %d", len(records))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}

	stats := db.Stats()
	if stats.IndexScansTotal != 1 {
		t.Errorf("expected IndexScansTotal=1, got %d", stats.IndexScansTotal)
	}
	if stats.RowsRead != 1 {
		t.Errorf("expected RowsRead=1, got %d", stats.RowsRead)
	}

	err = db.View(func(tx *Tx) error {
		seq, err := tx.Scan("items")
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
		if count != 10 {
			t.Errorf("expected 10 results, got %d", count)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	stats = db.Stats()
	if stats.FullScansTotal != 1 {
		t.Errorf("expected FullScansTotal=1, got %d", stats.FullScansTotal)
	}
	if stats.RowsRead != 11 {
		t.Errorf("expected RowsRead=11, got %d", stats.RowsRead)
	}
}

func TestStats_Timing(t *testing.T) {
	db := openStatsDB(t, "test_stats_timing.db")

	err := db.Update(func(tx *Tx) error {
		if err := tx.CreateTable("test", []string{"k", "v"}); err != nil {
			return err
		}
		insertValues(t, tx, "test", 1, "value")
		return nil
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	stats := db.Stats()
	if stats.TxDuration == 0 {
		t.Error("expected TxDuration > 0")
	}
	if stats.InsertDuration == 0 {
		t.Error("expected InsertDuration > 0")
	}
}

func TestStats_Reset(t *testing.T) {
	db := openStatsDB(t, "test_stats_reset.db")

	err := db.Update(func(tx *Tx) error {
		if err := tx.CreateTable("test", []string{"k", "v"}); err != nil {
			return err
		}
		insertValues(t, tx, "test", 1, "value")
		return nil
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if db.Stats().WriteTxTotal == 0 {
		t.Error("expected WriteTxTotal > 0 before reset")
	}

	db.ResetStats()

	stats := db.Stats()
	if stats.WriteTxTotal != 0 {
		t.Errorf("expected WriteTxTotal=0 after reset, got %d", stats.WriteTxTotal)
	}
	if stats.RowsInserted != 0 {
		t.Errorf("expected RowsInserted=0 after reset, got %d", stats.RowsInserted)
	}
	if stats.TxDuration != 0 {
		t.Errorf("expected TxDuration=0 after reset, got %v", stats.TxDuration)
	}
	if stats.OpenedAt.IsZero() {
		t.Error("expected OpenedAt to be preserved after reset")
	}
}

func TestStats_String(t *testing.T) {
	db := openStatsDB(t, "test_stats_string.db")

	err := db.Update(func(tx *Tx) error {
		if err := tx.CreateTable("test", []string{"k", "v"}); err != nil {
			return err
		}
		insertValues(t, tx, "test", 1, "value")
		insertValues(t, tx, "test", 2, "other")
		return nil
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	str := db.Stats().String()
	if !strings.Contains(str, "Store Stats (opened ") {
		t.Errorf("expected a title line, got:\n%s", str)
	}
	for _, want := range [][]string{
		{"transactions", "read", "0"},
		{"write", "1"},
		{"committed", "1"},
		{"rows", "inserted", "2"},
		{"tables", "created", "1"},
		{"boltdb", "free pages"},
	} {
		if !hasLine(str, want...) {
			t.Errorf("expected a line with %q, got:\n%s", want, str)
		}
	}
}

// hasLine reports whether some line of s starts with the table cells want.
func hasLine(s string, want ...string) bool {
	for line := range strings.Lines(s) {
		var cells []string
		for _, c := range strings.Split(line, "│") {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) >= len(want) && slices.Equal(cells[:len(want)], want) {
			return true
		}
	}
	return false
}

func TestStats_Concurrent(t *testing.T) {
	db := openStatsDB(t, "test_stats_concurrent.db")

	var wg sync.WaitGroup
	numGoroutines := 10
	opsPerGoroutine := 100

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range opsPerGoroutine {
				db.View(func(tx *Tx) error {
					return nil
				})
				db.Stats()
			}
		}()
	}
	wg.Wait()

	expectedReads := int64(numGoroutines * opsPerGoroutine)
	if got := db.Stats().ReadTxTotal; got != expectedReads {
		t.Errorf("expected ReadTxTotal=%d, got %d", expectedReads, got)
	}
}

func TestStats_OpenedAt(t *testing.T) {
	before := time.Now()
	db := openStatsDB(t, "test_stats_opened.db")
	after := time.Now()

	stats := db.Stats()
	if stats.OpenedAt.Before(before) || stats.OpenedAt.After(after) {
		t.Errorf("OpenedAt %v should be between %v and %v", stats.OpenedAt, before, after)
	}
}
