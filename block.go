package tablerow

import (
	"iter"
	"slices"
)

// Column is one named column of a Block.
type Column struct {
	Name   string
	Values []any
}

// Block stores a batch of rows column by column. Rows taken from a block
// read straight out of the column slices; nothing is copied per row.
type Block struct {
	columns     []Column
	nameToIndex map[string]int
	numRows     int
}

// NewBlock builds a block from columns of equal length with unique names.
// The column slices are retained, not copied.
func NewBlock(columns ...Column) (*Block, error) {
	b := &Block{
		columns:     columns,
		nameToIndex: make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if _, dup := b.nameToIndex[col.Name]; dup {
			return nil, ErrDuplicateColumn(col.Name)
		}
		b.nameToIndex[col.Name] = i
		if i == 0 {
			b.numRows = len(col.Values)
		} else if len(col.Values) != b.numRows {
			return nil, ErrColumnLengthMismatch(col.Name, b.numRows, len(col.Values))
		}
	}
	return b, nil
}

func (b *Block) NumRows() int {
	return b.numRows
}

func (b *Block) ColumnNames() []string {
	names := make([]string, len(b.columns))
	for i, col := range b.columns {
		names[i] = col.Name
	}
	return names
}

// Column returns the values of the named column.
func (b *Block) Column(name string) ([]any, bool) {
	idx, ok := b.nameToIndex[name]
	if !ok {
		return nil, false
	}
	return b.columns[idx].Values, true
}

func (b *Block) Row(i int) (Row, error) {
	if i < 0 || i >= b.numRows {
		return nil, ErrRowIndexOutOfRange(i, b.numRows)
	}
	return &blockRow{block: b, idx: i}, nil
}

func (b *Block) Rows() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i := range b.numRows {
			if !yield(i, &blockRow{block: b, idx: i}) {
				return
			}
		}
	}
}

// Slice returns the rows [from, to) as a block sharing storage with b.
func (b *Block) Slice(from, to int) (*Block, error) {
	if from < 0 || to > b.numRows || from > to {
		return nil, ErrRowIndexOutOfRange(from, b.numRows)
	}
	columns := make([]Column, len(b.columns))
	for i, col := range b.columns {
		columns[i] = Column{Name: col.Name, Values: col.Values[from:to:to]}
	}
	return &Block{
		columns:     columns,
		nameToIndex: b.nameToIndex,
		numRows:     to - from,
	}, nil
}

type blockRow struct {
	block *Block
	idx   int
}

func (br *blockRow) Get(key string) (any, error) {
	colIdx, ok := br.block.nameToIndex[key]
	if !ok {
		return nil, ErrKeyNotFound(key)
	}
	return br.block.columns[colIdx].Values[br.idx], nil
}

func (br *blockRow) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, col := range br.block.columns {
			if !yield(col.Name) {
				return
			}
		}
	}
}

func (br *blockRow) Len() int {
	return len(br.block.columns)
}

// BlockOf collects rows into a block whose columns follow the keys of the
// first row. Every row must have the same key set.
func BlockOf(rows ...Row) (*Block, error) {
	if len(rows) == 0 {
		return NewBlock()
	}
	names := slices.Collect(rows[0].Keys())
	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, Values: make([]any, len(rows))}
	}
	for r, row := range rows {
		if row.Len() != len(names) {
			return nil, ErrRowWidthMismatch(len(names), row.Len())
		}
		for i, name := range names {
			v, err := row.Get(name)
			if err != nil {
				return nil, err
			}
			columns[i].Values[r] = v
		}
	}
	return NewBlock(columns...)
}
