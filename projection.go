package tablerow

import (
	"iter"
	"slices"
)

type projectedRow struct {
	baseRow Row
	toBase  map[string]string
	keys    []string
}

// Project exposes fields of base under new names. toBase maps each new
// name to the base field it reads. Keys follow the order of the base
// fields they come from; names sharing one base field are sorted.
func Project(base Row, toBase map[string]string) (Row, error) {
	fromBase := make(map[string][]string, len(toBase))
	for projField, baseField := range toBase {
		if !Contains(base, baseField) {
			return nil, ErrProjectionMissing(baseField)
		}
		fromBase[baseField] = append(fromBase[baseField], projField)
	}
	keys := make([]string, 0, len(toBase))
	for baseField := range base.Keys() {
		projFields := fromBase[baseField]
		slices.Sort(projFields)
		keys = append(keys, projFields...)
	}
	if len(keys) != len(toBase) {
		return nil, ErrLengthMismatch(base.Len(), len(keys))
	}
	return &projectedRow{
		baseRow: base,
		toBase:  toBase,
		keys:    keys,
	}, nil
}

// Select is Project keeping the field names.
func Select(base Row, fields ...string) (Row, error) {
	toBase := make(map[string]string, len(fields))
	for _, f := range fields {
		toBase[f] = f
	}
	return Project(base, toBase)
}

func (pr *projectedRow) Get(field string) (any, error) {
	baseField, ok := pr.toBase[field]
	if !ok {
		return nil, ErrKeyNotFound(field)
	}
	return pr.baseRow.Get(baseField)
}

func (pr *projectedRow) Keys() iter.Seq[string] {
	return slices.Values(pr.keys)
}

func (pr *projectedRow) Len() int {
	return len(pr.keys)
}
