package tablerow

import (
	"iter"
	"slices"
)

type joinedRow struct {
	bases           []Row
	firstOccurences map[string]int
	keys            []string
}

// Join combines rows into one. A key present in several rows resolves to
// the first row that has it; keys keep the order in which they are first
// seen.
func Join(rows ...Row) Row {
	jr := &joinedRow{
		bases:           rows,
		firstOccurences: make(map[string]int),
	}
	for i, base := range rows {
		for key := range base.Keys() {
			if _, ok := jr.firstOccurences[key]; ok {
				continue
			}
			jr.firstOccurences[key] = i
			jr.keys = append(jr.keys, key)
		}
	}
	return jr
}

func (jr *joinedRow) Get(field string) (any, error) {
	bodyIdx, ok := jr.firstOccurences[field]
	if !ok {
		return nil, ErrKeyNotFound(field)
	}
	return jr.bases[bodyIdx].Get(field)
}

func (jr *joinedRow) Keys() iter.Seq[string] {
	return slices.Values(jr.keys)
}

func (jr *joinedRow) Len() int {
	return len(jr.keys)
}
