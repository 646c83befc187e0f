package tablerow

import (
	"iter"
	"slices"
)

// Frame stores rows one after another under a shared header, the layout
// query results usually arrive in.
type Frame struct {
	header      []string
	nameToIndex map[string]int
	rows        [][]any
}

func NewFrame(header ...string) (*Frame, error) {
	f := &Frame{
		header:      slices.Clone(header),
		nameToIndex: make(map[string]int, len(header)),
	}
	for i, h := range header {
		if _, dup := f.nameToIndex[h]; dup {
			return nil, ErrDuplicateColumn(h)
		}
		f.nameToIndex[h] = i
	}
	return f, nil
}

func (f *Frame) Header() []string {
	return slices.Clone(f.header)
}

// Append adds one row. It must not run concurrently with readers.
func (f *Frame) Append(values ...any) error {
	if len(values) != len(f.header) {
		return ErrRowWidthMismatch(len(f.header), len(values))
	}
	f.rows = append(f.rows, slices.Clone(values))
	return nil
}

func (f *Frame) Len() int {
	return len(f.rows)
}

func (f *Frame) Row(i int) (Row, error) {
	if i < 0 || i >= len(f.rows) {
		return nil, ErrRowIndexOutOfRange(i, len(f.rows))
	}
	return &frameRow{frame: f, values: f.rows[i]}, nil
}

func (f *Frame) Rows() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i, values := range f.rows {
			if !yield(i, &frameRow{frame: f, values: values}) {
				return
			}
		}
	}
}

type frameRow struct {
	frame  *Frame
	values []any
}

func (fr *frameRow) Get(key string) (any, error) {
	idx, ok := fr.frame.nameToIndex[key]
	if !ok {
		return nil, ErrKeyNotFound(key)
	}
	return fr.values[idx], nil
}

func (fr *frameRow) Keys() iter.Seq[string] {
	return slices.Values(fr.frame.header)
}

func (fr *frameRow) Len() int {
	return len(fr.frame.header)
}

// MapRow exposes a plain map as a Row with keys in sorted order.
type MapRow struct {
	values map[string]any
	keys   []string
}

// NewMapRow wraps m without copying it. m must not be modified while the
// row is in use.
func NewMapRow(m map[string]any) *MapRow {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return &MapRow{values: m, keys: keys}
}

func (mr *MapRow) Get(key string) (any, error) {
	v, ok := mr.values[key]
	if !ok {
		return nil, ErrKeyNotFound(key)
	}
	return v, nil
}

func (mr *MapRow) Keys() iter.Seq[string] {
	return slices.Values(mr.keys)
}

func (mr *MapRow) Len() int {
	return len(mr.keys)
}
