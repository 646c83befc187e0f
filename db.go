package tablerow

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/openkvlab/boltdb"
)

// DB is a table store on top of a boltdb file. Every row it hands out is a
// Row whose columns are decoded on access.
type DB struct {
	db       *boltdb.DB
	maUn     MarshalUnmarshaler
	logger   *slog.Logger
	openedAt time.Time
	stats    internalStats
}

type DBOptions = boltdb.Options

// Options configures OpenDB. The zero value uses msgpack for column values
// and discards logs.
type Options struct {
	Bolt   *DBOptions
	Codec  MarshalUnmarshaler
	Logger *slog.Logger
}

func OpenDB(path string, mode os.FileMode, options *Options) (*DB, error) {
	if options == nil {
		options = &Options{}
	}
	maUn := options.Codec
	if maUn == nil {
		maUn = MsgpackMaUn
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	bdb, err := boltdb.Open(path, mode, options.Bolt)
	if err != nil {
		return nil, err
	}
	logger.Info("store opened", slog.String("path", path))
	return &DB{
		db:       bdb,
		maUn:     maUn,
		logger:   logger,
		openedAt: time.Now(),
	}, nil
}

func (d *DB) Close() error {
	d.logger.Info("store closed", slog.String("path", d.db.Path()))
	return d.db.Close()
}

func (d *DB) Path() string {
	return d.db.Path()
}

func (d *DB) Begin(writable bool) (*Tx, error) {
	btx, err := d.db.Begin(writable)
	if err != nil {
		return nil, err
	}
	return newTx(d, btx, false), nil
}

func (d *DB) View(fn func(*Tx) error) error {
	return d.managed(d.db.View, fn)
}

func (d *DB) Update(fn func(*Tx) error) error {
	return d.managed(d.db.Update, fn)
}

func (d *DB) Batch(fn func(*Tx) error) error {
	return d.managed(d.db.Batch, fn)
}

func (d *DB) managed(run func(func(*boltdb.Tx) error) error, fn func(*Tx) error) error {
	var (
		tx        *Tx
		committed bool
	)
	defer func() {
		// also runs when fn panics
		if tx != nil {
			tx.finish(committed)
		}
	}()
	err := run(func(btx *boltdb.Tx) error {
		if tx != nil {
			// Batch retries fn alone when a batched call fails
			tx.finish(false)
		}
		tx = newTx(d, btx, true)
		return fn(tx)
	})
	committed = err == nil
	return err
}

// Snapshot writes a consistent copy of the store file to w.
func (d *DB) Snapshot(w io.Writer) (int64, error) {
	var n int64
	err := d.db.View(func(btx *boltdb.Tx) error {
		var err error
		n, err = btx.WriteTo(w)
		return err
	})
	return n, err
}

func (d *DB) Stats() Stats {
	return d.stats.snapshot(d.openedAt, d.db.Stats())
}

func (d *DB) ResetStats() {
	d.stats.reset()
}

func (d *DB) SetMaxBatchDelay(delay time.Duration) {
	d.db.MaxBatchDelay = delay
}

func (d *DB) SetMaxBatchSize(size int) {
	d.db.MaxBatchSize = size
}

func (d *DB) SetAllocSize(size int) {
	d.db.AllocSize = size
}

func (d *DB) MaxBatchDelay() time.Duration {
	return d.db.MaxBatchDelay
}

func (d *DB) MaxBatchSize() int {
	return d.db.MaxBatchSize
}

func (d *DB) AllocSize() int {
	return d.db.AllocSize
}
