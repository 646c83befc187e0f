package tablerow

import (
	"errors"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/openkvlab/boltdb"
	boltdb_errors "github.com/openkvlab/boltdb/errors"
)

// Tx is a store transaction. Rows it returns read from the transaction and
// must not be used after Commit or Rollback; Materialize them to keep them.
type Tx struct {
	tx        *boltdb.Tx
	db        *DB
	maUn      MarshalUnmarshaler
	managed   bool
	writable  bool
	startTime time.Time
	stores    map[string]*storage
}

func newTx(db *DB, btx *boltdb.Tx, managed bool) *Tx {
	tx := &Tx{
		tx:        btx,
		db:        db,
		maUn:      db.maUn,
		managed:   managed,
		writable:  btx.Writable(),
		startTime: time.Now(),
		stores:    make(map[string]*storage),
	}
	if tx.writable {
		db.stats.writeTx.Add(1)
	} else {
		db.stats.readTx.Add(1)
	}
	db.stats.openTx.Add(1)
	return tx
}

// finish records the outcome of the transaction in the database stats.
func (tx *Tx) finish(committed bool) {
	stats := &tx.db.stats
	stats.openTx.Add(-1)
	stats.txDuration.Add(int64(time.Since(tx.startTime)))
	if committed {
		stats.commits.Add(1)
	} else {
		stats.rollbacks.Add(1)
	}
}

func (tx *Tx) Commit() error {
	if tx.managed {
		panic("cannot commit a managed transaction")
	}
	err := tx.tx.Commit()
	tx.finish(err == nil)
	return err
}

func (tx *Tx) Rollback() error {
	if tx.managed {
		panic("cannot rollback a managed transaction")
	}
	err := tx.tx.Rollback()
	if errors.Is(err, boltdb_errors.ErrTxClosed) {
		// already committed or rolled back; nothing to record
		return err
	}
	tx.finish(false)
	return err
}

func (tx *Tx) ID() int {
	return tx.tx.ID()
}

func (tx *Tx) Writable() bool {
	return tx.writable
}

// CreateTable creates an empty table. Columns listed in indexed get an
// index usable by Lookup.
func (tx *Tx) CreateTable(name string, columns []string, indexed ...string) error {
	s, err := newStorage(tx.tx, name, columns, indexed, tx.maUn)
	if err != nil {
		return err
	}
	tx.stores[name] = s
	tx.db.stats.tablesCreated.Add(1)
	tx.db.logger.Info("table created",
		slog.String("table", name),
		slog.Any("columns", columns),
		slog.Any("indexed", indexed))
	return nil
}

func (tx *Tx) DropTable(name string) error {
	if err := deleteStorage(tx.tx, name); err != nil {
		return err
	}
	delete(tx.stores, name)
	tx.db.stats.tablesDropped.Add(1)
	tx.db.logger.Info("table dropped", slog.String("table", name))
	return nil
}

func (tx *Tx) loadStorage(name string) (*storage, error) {
	s, ok := tx.stores[name]
	if ok {
		return s, nil
	}
	s, err := loadStorage(tx.tx, name, tx.maUn)
	if err != nil {
		return nil, err
	}
	tx.stores[name] = s
	return s, nil
}

// Table describes the named table.
func (tx *Tx) Table(name string) (*Table, error) {
	s, err := tx.loadStorage(name)
	if err != nil {
		return nil, err
	}
	return s.table(), nil
}

// Tables lists table names in byte order.
func (tx *Tx) Tables() ([]string, error) {
	var names []string
	err := tx.tx.ForEach(func(name []byte, _ *boltdb.Bucket) error {
		names = append(names, string(name))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Insert stores row in the named table and returns its id. row must have
// exactly the table's columns; it may come from any backend.
func (tx *Tx) Insert(name string, row Row) (uint64, error) {
	start := time.Now()
	s, err := tx.loadStorage(name)
	if err != nil {
		return 0, err
	}
	id, err := s.Insert(unwrap(row))
	if err != nil {
		return 0, err
	}
	tx.db.stats.inserts.Add(1)
	tx.db.stats.insertDuration.Add(int64(time.Since(start)))
	return id, nil
}

func (tx *Tx) Get(name string, id uint64) (Row, error) {
	s, err := tx.loadStorage(name)
	if err != nil {
		return nil, err
	}
	row, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	tx.db.stats.reads.Add(1)
	return row, nil
}

// Scan yields every row of the named table in insertion order.
func (tx *Tx) Scan(name string) (iter.Seq2[Row, error], error) {
	s, err := tx.loadStorage(name)
	if err != nil {
		return nil, err
	}
	tx.db.stats.fullScans.Add(1)
	tx.db.logger.Debug("full scan", slog.String("table", name))
	return tx.counted(s.Scan()), nil
}

// Lookup yields the rows whose column equals value. The column must be
// indexed.
func (tx *Tx) Lookup(name, column string, value any) (iter.Seq2[Row, error], error) {
	s, err := tx.loadStorage(name)
	if err != nil {
		return nil, err
	}
	col, ok := s.nameToIndex[column]
	if !ok {
		return nil, ErrKeyNotFound(column)
	}
	if !s.metadata.Indexed[col] {
		return nil, ErrColumnNotIndexed(column)
	}
	seq, err := s.Lookup(col, value)
	if err != nil {
		return nil, err
	}
	tx.db.stats.indexScans.Add(1)
	tx.db.logger.Debug("index scan",
		slog.String("table", name),
		slog.String("column", column),
		slog.Any("value", value))
	return tx.counted(seq), nil
}

func (tx *Tx) counted(seq iter.Seq2[Row, error]) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for row, err := range seq {
			if err == nil {
				tx.db.stats.reads.Add(1)
			}
			if !yield(row, err) {
				return
			}
		}
	}
}

func (tx *Tx) Delete(name string, id uint64) error {
	s, err := tx.loadStorage(name)
	if err != nil {
		return err
	}
	if err := s.Delete(id); err != nil {
		return err
	}
	tx.db.stats.deletes.Add(1)
	return nil
}

// Collect materializes every row of seq.
func Collect(seq iter.Seq2[Row, error]) ([]*Record, error) {
	var records []*Record
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		rec, err := Materialize(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return slices.Clip(records), nil
}
