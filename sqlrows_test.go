package tablerow_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/longlodw/tablerow"
	"github.com/longlodw/tablerow/rowtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestQueryFrame(t *testing.T) {
	db, mock := setupMockDB(t)
	query := "SELECT id, name, score FROM users WHERE id > ?"
	mock.ExpectQuery(query).
		WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "score"}).
			AddRow(int64(1), []byte("alice"), 9.5).
			AddRow(int64(2), "bob", nil))

	frame, err := tablerow.QueryFrame(context.Background(), db, query, int64(0))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "score"}, frame.Header())
	require.Equal(t, 2, frame.Len())

	want := []string{
		"{'id': 1, 'name': 'alice', 'score': 9.5}",
		"{'id': 2, 'name': 'bob', 'score': nil}",
	}
	for i, row := range frame.Rows() {
		rowtest.Run(t, row, nil)
		s, err := tablerow.Format(row)
		require.NoError(t, err)
		assert.Equal(t, want[i], s)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryFrameBinaryColumn(t *testing.T) {
	db, mock := setupMockDB(t)
	query := "SELECT data FROM blobs"
	mock.ExpectQuery(query).
		WillReturnRows(mock.NewRowsWithColumnDefinition(
			mock.NewColumn("data").OfType("BLOB", []byte{}),
		).AddRow([]byte{0xca, 0xfe}))

	frame, err := tablerow.QueryFrame(context.Background(), db, query)
	require.NoError(t, err)
	row, err := frame.Row(0)
	require.NoError(t, err)
	v, err := row.Get("data")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xfe}, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryFrameErrors(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT broken").WillReturnError(sql.ErrConnDone)
	_, err := tablerow.QueryFrame(context.Background(), db, "SELECT broken")
	assert.ErrorIs(t, err, sql.ErrConnDone)

	boom := errors.New("boom")
	mock.ExpectQuery("SELECT n FROM numbers").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).
			AddRow(int64(1)).
			AddRow(int64(2)).
			RowError(1, boom))
	_, err = tablerow.QueryFrame(context.Background(), db, "SELECT n FROM numbers")
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery("SELECT a, a FROM t").
		WillReturnRows(sqlmock.NewRows([]string{"a", "a"}).AddRow(int64(1), int64(2)))
	_, err = tablerow.QueryFrame(context.Background(), db, "SELECT a, a FROM t")
	assert.ErrorContains(t, err, "duplicate column a")

	assert.NoError(t, mock.ExpectationsWereMet())
}
