package tablerow

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/openkvlab/boltdb"
)

// Stats is a snapshot of a DB's counters, cumulative since OpenDB or the
// last ResetStats.
type Stats struct {
	OpenedAt time.Time

	ReadTxTotal     int64
	WriteTxTotal    int64
	TxCommitTotal   int64
	TxRollbackTotal int64
	TxOpenCount     int64 // open right now; never reset

	RowsInserted int64
	RowsDeleted  int64
	RowsRead     int64 // rows handed out by Get, Scan and Lookup

	IndexScansTotal int64 // Lookup calls
	FullScansTotal  int64 // Scan calls

	TablesCreated int64
	TablesDropped int64

	TxDuration     time.Duration
	InsertDuration time.Duration

	BoltDB boltdb.Stats
}

// String renders the snapshot as a two-column table, one group of rows
// per area of the store.
func (s Stats) String() string {
	count := func(n int64) string { return strconv.FormatInt(n, 10) }
	groups := []struct {
		name string
		rows [][2]string
	}{
		{"transactions", [][2]string{
			{"read", count(s.ReadTxTotal)},
			{"write", count(s.WriteTxTotal)},
			{"committed", count(s.TxCommitTotal)},
			{"rolled back", count(s.TxRollbackTotal)},
			{"open", count(s.TxOpenCount)},
			{"time", s.TxDuration.String()},
		}},
		{"rows", [][2]string{
			{"inserted", count(s.RowsInserted)},
			{"insert time", s.InsertDuration.String()},
			{"deleted", count(s.RowsDeleted)},
			{"read", count(s.RowsRead)},
			{"index lookups", count(s.IndexScansTotal)},
			{"full scans", count(s.FullScansTotal)},
		}},
		{"tables", [][2]string{
			{"created", count(s.TablesCreated)},
			{"dropped", count(s.TablesDropped)},
		}},
		{"boltdb", [][2]string{
			{"free pages", strconv.Itoa(s.BoltDB.FreePageN)},
			{"pending pages", strconv.Itoa(s.BoltDB.PendingPageN)},
			{"free bytes", strconv.Itoa(s.BoltDB.FreeAlloc)},
			{"freelist bytes", strconv.Itoa(s.BoltDB.FreelistInuse)},
			{"open read tx", strconv.Itoa(s.BoltDB.OpenTxN)},
		}},
	}

	t := table.NewWriter()
	t.SetTitle("Store Stats (opened " + s.OpenedAt.Format(time.RFC3339) + ")")
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	for i, g := range groups {
		if i > 0 {
			t.AppendSeparator()
		}
		for j, r := range g.rows {
			label := ""
			if j == 0 {
				label = g.name
			}
			t.AppendRow(table.Row{label, r[0], r[1]})
		}
	}
	return t.Render() + "\n"
}

type internalStats struct {
	readTx    atomic.Int64
	writeTx   atomic.Int64
	commits   atomic.Int64
	rollbacks atomic.Int64
	openTx    atomic.Int64

	inserts atomic.Int64
	deletes atomic.Int64
	reads   atomic.Int64

	indexScans atomic.Int64
	fullScans  atomic.Int64

	tablesCreated atomic.Int64
	tablesDropped atomic.Int64

	// nanoseconds
	txDuration     atomic.Int64
	insertDuration atomic.Int64
}

func (s *internalStats) snapshot(openedAt time.Time, boltStats boltdb.Stats) Stats {
	return Stats{
		OpenedAt: openedAt,

		ReadTxTotal:     s.readTx.Load(),
		WriteTxTotal:    s.writeTx.Load(),
		TxCommitTotal:   s.commits.Load(),
		TxRollbackTotal: s.rollbacks.Load(),
		TxOpenCount:     s.openTx.Load(),

		RowsInserted: s.inserts.Load(),
		RowsDeleted:  s.deletes.Load(),
		RowsRead:     s.reads.Load(),

		IndexScansTotal: s.indexScans.Load(),
		FullScansTotal:  s.fullScans.Load(),

		TablesCreated: s.tablesCreated.Load(),
		TablesDropped: s.tablesDropped.Load(),

		TxDuration:     time.Duration(s.txDuration.Load()),
		InsertDuration: time.Duration(s.insertDuration.Load()),

		BoltDB: boltStats,
	}
}

// reset zeros every counter except openTx.
func (s *internalStats) reset() {
	for _, c := range []*atomic.Int64{
		&s.readTx, &s.writeTx, &s.commits, &s.rollbacks,
		&s.inserts, &s.deletes, &s.reads,
		&s.indexScans, &s.fullScans,
		&s.tablesCreated, &s.tablesDropped,
		&s.txDuration, &s.insertDuration,
	} {
		c.Store(0)
	}
}
