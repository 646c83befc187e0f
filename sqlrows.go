package tablerow

import (
	"context"
	"database/sql"
	"strings"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// QueryFrame runs query and collects its result set into a Frame whose
// header is the result's column names.
func QueryFrame(ctx context.Context, q Querier, query string, args ...any) (*Frame, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return FrameFromSQL(rows)
}

// FrameFromSQL drains rows into a Frame and closes them. Driver byte
// slices become strings unless the column is a binary type.
func FrameFromSQL(rows *sql.Rows) (*Frame, error) {
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	frame, err := NewFrame(header...)
	if err != nil {
		return nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	procs := make([]func(any) any, len(colTypes))
	for i, ct := range colTypes {
		procs[i] = typeProcessor(ct.DatabaseTypeName())
	}

	for rows.Next() {
		values := make([]any, len(header))
		pointers := make([]any, len(header))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		for i, proc := range procs {
			values[i] = proc(values[i])
		}
		if err := frame.Append(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return frame, nil
}

func typeProcessor(typ string) func(any) any {
	switch strings.ToUpper(typ) {
	case "BLOB", "BYTEA", "BINARY", "VARBINARY", "LONGBLOB":
		return func(val any) any { return val }
	default:
		return func(val any) any {
			if b, ok := val.([]byte); ok {
				return string(b)
			}
			return val
		}
	}
}
