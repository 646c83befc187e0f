package tablerow_test

import (
	"path/filepath"
	"testing"

	"github.com/longlodw/tablerow"
	"github.com/longlodw/tablerow/rowtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codecNames = []string{"json", "gob", "msgpack"}

func openTestDB(t *testing.T, codecName string) (*tablerow.DB, string) {
	t.Helper()
	codec, ok := tablerow.CodecByName(codecName)
	require.True(t, ok)
	path := filepath.Join(t.TempDir(), "rows.db")
	db, err := tablerow.OpenDB(path, 0600, &tablerow.Options{Codec: codec})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

func userRecord(t *testing.T, id int, name string, age any) *tablerow.Record {
	t.Helper()
	rec, err := tablerow.RecordOf([]string{"id", "name", "age"}, []any{id, name, age})
	require.NoError(t, err)
	return rec
}

func createUsers(t *testing.T, db *tablerow.DB) []uint64 {
	t.Helper()
	var ids []uint64
	err := db.Update(func(tx *tablerow.Tx) error {
		if err := tx.CreateTable("users", []string{"id", "name", "age"}, "name", "age"); err != nil {
			return err
		}
		for _, rec := range []*tablerow.Record{
			userRecord(t, 1, "alice", 30),
			userRecord(t, 2, "bob", 25),
			userRecord(t, 3, "bobby", 30),
		} {
			id, err := tx.Insert("users", rec)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	require.NoError(t, err)
	return ids
}

func TestStore_InsertGetScan(t *testing.T) {
	for _, codec := range codecNames {
		t.Run(codec, func(t *testing.T) {
			db, _ := openTestDB(t, codec)
			ids := createUsers(t, db)
			require.Len(t, ids, 3)

			err := db.View(func(tx *tablerow.Tx) error {
				row, err := tx.Get("users", ids[1])
				require.NoError(t, err)
				rowtest.Run(t, row, map[string]any{"id": 2, "name": "bob", "age": 25})
				assert.Equal(t, "{'id': 2, 'name': 'bob', 'age': 25}", tablerow.NewView(row).String())

				id, ok := tablerow.RowID(row)
				require.True(t, ok)
				assert.Equal(t, ids[1], id)

				seq, err := tx.Scan("users")
				require.NoError(t, err)
				records, err := tablerow.Collect(seq)
				require.NoError(t, err)
				require.Len(t, records, 3)
				names := make([]any, len(records))
				for i, rec := range records {
					names[i], _ = rec.Get("name")
				}
				assert.Equal(t, []any{"alice", "bob", "bobby"}, names)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestStore_InsertAnyBackend(t *testing.T) {
	db, _ := openTestDB(t, "msgpack")
	block, err := tablerow.NewBlock(
		tablerow.Column{Name: "name", Values: []any{"from block"}},
		tablerow.Column{Name: "id", Values: []any{10}},
	)
	require.NoError(t, err)
	blockRow, err := block.Row(0)
	require.NoError(t, err)

	frame, err := tablerow.NewFrame("age", "id", "name")
	require.NoError(t, err)
	require.NoError(t, frame.Append(40, 11, "from frame"))
	frameRow, err := frame.Row(0)
	require.NoError(t, err)

	err = db.Update(func(tx *tablerow.Tx) error {
		require.NoError(t, tx.CreateTable("users", []string{"id", "name", "age"}))

		// a block row lacks age; joining supplies it
		extra := tablerow.NewMapRow(map[string]any{"age": nil})
		if _, err := tx.Insert("users", tablerow.Join(blockRow, extra)); err != nil {
			return err
		}
		_, err := tx.Insert("users", tablerow.NewView(frameRow))
		return err
	})
	require.NoError(t, err)

	err = db.View(func(tx *tablerow.Tx) error {
		seq, err := tx.Scan("users")
		require.NoError(t, err)
		records, err := tablerow.Collect(seq)
		require.NoError(t, err)
		require.Len(t, records, 2)
		rowtest.Run(t, records[0], map[string]any{"id": 10, "name": "from block", "age": nil})
		rowtest.Run(t, records[1], map[string]any{"id": 11, "name": "from frame", "age": 40})
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Lookup(t *testing.T) {
	for _, codec := range codecNames {
		t.Run(codec, func(t *testing.T) {
			db, _ := openTestDB(t, codec)
			createUsers(t, db)

			err := db.View(func(tx *tablerow.Tx) error {
				count := func(column string, value any) []any {
					seq, err := tx.Lookup("users", column, value)
					require.NoError(t, err)
					records, err := tablerow.Collect(seq)
					require.NoError(t, err)
					var ids []any
					for _, rec := range records {
						id, _ := rec.Get("id")
						ids = append(ids, id)
					}
					return ids
				}

				assert.Len(t, count("name", "bob"), 1)
				assert.Len(t, count("name", "bobby"), 1)
				assert.Empty(t, count("name", "bo"))
				assert.Len(t, count("age", 30), 2)
				assert.Len(t, count("age", int64(30)), 2)
				assert.Len(t, count("age", 30.0), 2)
				assert.Len(t, count("age", uint8(25)), 1)
				assert.Empty(t, count("age", 26))

				_, err := tx.Lookup("users", "id", 1)
				assert.Error(t, err, "id is not indexed")
				_, err = tx.Lookup("users", "nope", 1)
				assert.True(t, tablerow.IsKeyNotFound(err))
				_, err = tx.Lookup("missing", "name", "bob")
				assert.Error(t, err)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestStore_LookupNilAndBool(t *testing.T) {
	db, _ := openTestDB(t, "msgpack")
	err := db.Update(func(tx *tablerow.Tx) error {
		require.NoError(t, tx.CreateTable("flags", []string{"name", "on", "note"}, "on", "note"))
		for _, values := range [][]any{
			{"a", true, nil},
			{"b", false, "x"},
			{"c", true, nil},
		} {
			rec, err := tablerow.RecordOf([]string{"name", "on", "note"}, values)
			require.NoError(t, err)
			if _, err := tx.Insert("flags", rec); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = db.View(func(tx *tablerow.Tx) error {
		seq, err := tx.Lookup("flags", "on", true)
		require.NoError(t, err)
		records, err := tablerow.Collect(seq)
		require.NoError(t, err)
		assert.Len(t, records, 2)

		seq, err = tx.Lookup("flags", "note", nil)
		require.NoError(t, err)
		records, err = tablerow.Collect(seq)
		require.NoError(t, err)
		assert.Len(t, records, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_InsertErrors(t *testing.T) {
	db, _ := openTestDB(t, "msgpack")
	createUsers(t, db)

	err := db.Update(func(tx *tablerow.Tx) error {
		short, _ := tablerow.RecordOf([]string{"id", "name"}, []any{1, "x"})
		_, err := tx.Insert("users", short)
		assert.Error(t, err)

		wrongKeys, _ := tablerow.RecordOf([]string{"id", "name", "email"}, []any{1, "x", "x@example.com"})
		_, err = tx.Insert("users", wrongKeys)
		assert.True(t, tablerow.IsKeyNotFound(err))

		_, err = tx.Insert("missing", userRecord(t, 1, "x", 1))
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Delete(t *testing.T) {
	db, _ := openTestDB(t, "json")
	ids := createUsers(t, db)

	err := db.Update(func(tx *tablerow.Tx) error {
		require.NoError(t, tx.Delete("users", ids[0]))
		assert.Error(t, tx.Delete("users", ids[0]))
		_, err := tx.Get("users", ids[0])
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)

	err = db.View(func(tx *tablerow.Tx) error {
		seq, err := tx.Lookup("users", "age", 30)
		require.NoError(t, err)
		records, err := tablerow.Collect(seq)
		require.NoError(t, err)
		require.Len(t, records, 1)
		rowtest.Run(t, records[0], map[string]any{"id": 3, "name": "bobby", "age": 30})

		seq, err = tx.Scan("users")
		require.NoError(t, err)
		records, err = tablerow.Collect(seq)
		require.NoError(t, err)
		assert.Len(t, records, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Tables(t *testing.T) {
	db, _ := openTestDB(t, "msgpack")
	createUsers(t, db)

	err := db.Update(func(tx *tablerow.Tx) error {
		assert.ErrorIs(t, tx.CreateTable("empty", nil), tablerow.ErrNoColumns)
		assert.Error(t, tx.CreateTable("users", []string{"id"}))
		assert.Error(t, tx.CreateTable("dup", []string{"a", "a"}))
		assert.Error(t, tx.CreateTable("badindex", []string{"a"}, "b"))
		require.NoError(t, tx.CreateTable("audit", []string{"event"}))

		names, err := tx.Tables()
		require.NoError(t, err)
		assert.Equal(t, []string{"audit", "users"}, names)

		table, err := tx.Table("users")
		require.NoError(t, err)
		assert.Equal(t, &tablerow.Table{
			Name:    "users",
			Columns: []string{"id", "name", "age"},
			Indexed: []string{"name", "age"},
		}, table)

		require.NoError(t, tx.DropTable("audit"))
		assert.Error(t, tx.DropTable("audit"))
		_, err = tx.Table("audit")
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_ManualTx(t *testing.T) {
	db, _ := openTestDB(t, "msgpack")

	tx, err := db.Begin(true)
	require.NoError(t, err)
	assert.True(t, tx.Writable())
	require.NoError(t, tx.CreateTable("t", []string{"v"}))
	require.NoError(t, tx.Rollback())

	err = db.View(func(tx *tablerow.Tx) error {
		_, err := tx.Table("t")
		assert.Error(t, err, "rolled back table must not exist")
		return nil
	})
	require.NoError(t, err)

	tx, err = db.Begin(true)
	require.NoError(t, err)
	require.NoError(t, tx.CreateTable("t", []string{"v"}))
	rec, _ := tablerow.RecordOf([]string{"v"}, []any{"kept"})
	_, err = tx.Insert("t", rec)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Error(t, tx.Rollback())

	err = db.View(func(tx *tablerow.Tx) error {
		assert.False(t, tx.Writable())
		seq, err := tx.Scan("t")
		require.NoError(t, err)
		records, err := tablerow.Collect(seq)
		require.NoError(t, err)
		require.Len(t, records, 1)
		rowtest.Run(t, records[0], map[string]any{"v": "kept"})
		return nil
	})
	require.NoError(t, err)
}

func TestStore_ManagedTxPanics(t *testing.T) {
	db, _ := openTestDB(t, "msgpack")
	err := db.View(func(tx *tablerow.Tx) error {
		assert.Panics(t, func() { tx.Commit() })
		assert.Panics(t, func() { tx.Rollback() })
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Reopen(t *testing.T) {
	db, path := openTestDB(t, "gob")
	ids := createUsers(t, db)
	require.NoError(t, db.Close())

	reopened, err := tablerow.OpenDB(path, 0600, &tablerow.Options{Codec: tablerow.GobMaUn})
	require.NoError(t, err)
	defer reopened.Close()

	err = reopened.View(func(tx *tablerow.Tx) error {
		row, err := tx.Get("users", ids[2])
		require.NoError(t, err)
		rowtest.Run(t, row, map[string]any{"id": 3, "name": "bobby", "age": 30})
		return nil
	})
	require.NoError(t, err)
}

func TestStore_NestedValues(t *testing.T) {
	for _, codec := range codecNames {
		t.Run(codec, func(t *testing.T) {
			db, _ := openTestDB(t, codec)
			inner, _ := tablerow.RecordOf([]string{"city", "zip"}, []any{"Oslo", "0150"})
			rec, _ := tablerow.RecordOf([]string{"name", "address", "tags"}, []any{"ann", inner, []any{"a", 1}})

			var id uint64
			err := db.Update(func(tx *tablerow.Tx) error {
				require.NoError(t, tx.CreateTable("people", []string{"name", "address", "tags"}))
				var err error
				id, err = tx.Insert("people", tablerow.NewView(rec))
				return err
			})
			require.NoError(t, err)

			err = db.View(func(tx *tablerow.Tx) error {
				row, err := tx.Get("people", id)
				require.NoError(t, err)
				eq, err := tablerow.Equal(row, rec)
				require.NoError(t, err)
				assert.True(t, eq)
				s, err := tablerow.Format(row)
				require.NoError(t, err)
				assert.Equal(t, "{'name': 'ann', 'address': {'city': 'Oslo', 'zip': '0150'}, 'tags': ['a', 1]}", s)
				return nil
			})
			require.NoError(t, err)
		})
	}
}
