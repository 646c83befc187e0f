package tablerow

import "iter"

// Row is a read-only, key-unique mapping over one record of some backend
// storage. Implementations supply only these three primitives; membership,
// iteration, materialization, equality and display are derived from them
// by the functions in this package and by View.
//
// Keys must be finite and restartable, and must yield the same sequence on
// every call for a given row. Len must equal the number of keys yielded.
type Row interface {
	Get(key string) (any, error)
	Keys() iter.Seq[string]
	Len() int
}

// Item is one key/value pair of a row.
type Item struct {
	Key   string
	Value any
}

// Contains reports whether a lookup of key on r would succeed.
func Contains(r Row, key string) bool {
	_, err := r.Get(key)
	return err == nil
}

// Items pairs every key of r with its value, fetching each value only when
// the pair is requested. A failing lookup is yielded once and ends the
// sequence.
func Items(r Row) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for key := range r.Keys() {
			value, err := r.Get(key)
			if err != nil {
				yield(Item{Key: key}, err)
				return
			}
			if !yield(Item{Key: key, Value: value}, nil) {
				return
			}
		}
	}
}

// Materialize copies every entry of r into a new Record in key order.
func Materialize(r Row) (*Record, error) {
	n := r.Len()
	rec := &Record{
		keys:   make([]string, 0, n),
		values: make(map[string]any, n),
	}
	for item, err := range Items(r) {
		if err != nil {
			return nil, err
		}
		if _, dup := rec.values[item.Key]; dup {
			return nil, ErrDuplicateKey(item.Key)
		}
		rec.keys = append(rec.keys, item.Key)
		rec.values[item.Key] = item.Value
	}
	if len(rec.keys) != n {
		return nil, ErrLengthMismatch(n, len(rec.keys))
	}
	return rec, nil
}

// ToMap is Materialize without key order.
func ToMap(r Row) (map[string]any, error) {
	rec, err := Materialize(r)
	if err != nil {
		return nil, err
	}
	return rec.values, nil
}

// Equal reports whether a and b hold the same keys with equal values.
// Iteration order is not significant.
func Equal(a, b Row) (bool, error) {
	return rowsEqual(a, b, nil)
}

type rowPair struct {
	a, b uintptr
}

func rowsEqual(a, b Row, seen map[rowPair]bool) (bool, error) {
	if ida := identityOf(a); ida != 0 && ida == identityOf(b) {
		return true, nil
	}
	seen, leave, first := track(seen, a, b)
	if !first {
		return true, nil
	}
	defer leave()
	if a.Len() != b.Len() {
		return false, nil
	}
	counted := 0
	keys := make(map[string]struct{}, a.Len())
	for item, err := range Items(a) {
		if err != nil {
			return false, err
		}
		if _, dup := keys[item.Key]; dup {
			return false, ErrDuplicateKey(item.Key)
		}
		keys[item.Key] = struct{}{}
		counted++
		other, err := b.Get(item.Key)
		if err != nil {
			if IsKeyNotFound(err) {
				return false, nil
			}
			return false, err
		}
		eq, err := valuesEqual(item.Value, other, seen)
		if err != nil || !eq {
			return false, err
		}
	}
	if counted != a.Len() {
		return false, ErrLengthMismatch(a.Len(), counted)
	}
	return true, nil
}
