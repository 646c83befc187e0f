package tablerow

import (
	"iter"
	"slices"
)

// EncodedRow keeps every field as encoded bytes and decodes a field only
// when it is read. Decoded values are not cached, so reading a field twice
// decodes it twice.
type EncodedRow struct {
	keys   []string
	fields map[string][]byte
	maUn   MarshalUnmarshaler
}

// NewEncodedRow wraps already encoded fields. keys fixes the field order
// and must list every field of fields exactly once.
func NewEncodedRow(maUn MarshalUnmarshaler, keys []string, fields map[string][]byte) (*EncodedRow, error) {
	if len(keys) != len(fields) {
		return nil, ErrRowWidthMismatch(len(fields), len(keys))
	}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			return nil, ErrDuplicateColumn(k)
		}
		seen[k] = struct{}{}
		if _, ok := fields[k]; !ok {
			return nil, ErrKeyNotFound(k)
		}
	}
	return &EncodedRow{
		keys:   slices.Clone(keys),
		fields: fields,
		maUn:   maUn,
	}, nil
}

// EncodeRow encodes every field of r with maUn.
func EncodeRow(maUn MarshalUnmarshaler, r Row) (*EncodedRow, error) {
	er := &EncodedRow{
		keys:   make([]string, 0, r.Len()),
		fields: make(map[string][]byte, r.Len()),
		maUn:   maUn,
	}
	for item, err := range Items(r) {
		if err != nil {
			return nil, err
		}
		v, err := plainValue(item.Value)
		if err != nil {
			return nil, err
		}
		b, err := maUn.Marshal(v)
		if err != nil {
			return nil, err
		}
		if _, dup := er.fields[item.Key]; dup {
			return nil, ErrDuplicateKey(item.Key)
		}
		er.keys = append(er.keys, item.Key)
		er.fields[item.Key] = b
	}
	return er, nil
}

func (er *EncodedRow) Get(key string) (any, error) {
	raw, ok := er.fields[key]
	if !ok {
		return nil, ErrKeyNotFound(key)
	}
	return decodeValue(er.maUn, raw)
}

// Raw returns the encoded bytes of key without decoding them.
func (er *EncodedRow) Raw(key string) ([]byte, error) {
	raw, ok := er.fields[key]
	if !ok {
		return nil, ErrKeyNotFound(key)
	}
	return raw, nil
}

func (er *EncodedRow) Keys() iter.Seq[string] {
	return slices.Values(er.keys)
}

func (er *EncodedRow) Len() int {
	return len(er.keys)
}

func decodeValue(maUn MarshalUnmarshaler, raw []byte) (any, error) {
	if raw == nil {
		return nil, nil
	}
	var v any
	if err := maUn.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
