package tablerow

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"iter"
	"maps"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// Record is the materialized form of a row: an ordered mapping that owns
// its entries. Unlike a View it may be modified, and nothing it does is
// seen by the row it was built from.
type Record struct {
	keys   []string
	values map[string]any
}

func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// RecordOf builds a record from parallel key and value slices. A repeated
// key keeps its first position and its last value.
func RecordOf(keys []string, values []any) (*Record, error) {
	if len(keys) != len(values) {
		return nil, ErrRowWidthMismatch(len(keys), len(values))
	}
	rec := &Record{
		keys:   make([]string, 0, len(keys)),
		values: make(map[string]any, len(keys)),
	}
	for i, k := range keys {
		rec.Set(k, values[i])
	}
	return rec, nil
}

func (r *Record) Get(key string) (any, error) {
	v, ok := r.values[key]
	if !ok {
		return nil, ErrKeyNotFound(key)
	}
	return v, nil
}

func (r *Record) Keys() iter.Seq[string] {
	return slices.Values(r.keys)
}

func (r *Record) Len() int {
	return len(r.keys)
}

// Set stores value under key. New keys go to the end.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Delete removes key, reporting whether it was present.
func (r *Record) Delete(key string) bool {
	if _, ok := r.values[key]; !ok {
		return false
	}
	delete(r.values, key)
	r.keys = slices.DeleteFunc(r.keys, func(k string) bool { return k == key })
	return true
}

// Map returns an unordered copy of the entries.
func (r *Record) Map() map[string]any {
	return maps.Clone(r.values)
}

func (r *Record) Clone() *Record {
	return &Record{
		keys:   slices.Clone(r.keys),
		values: maps.Clone(r.values),
	}
}

func (r *Record) String() string {
	s, err := Format(r)
	if err != nil {
		return formatError(err)
	}
	return s
}

func (r *Record) PrettyPrint(p *Printer, cycle bool) error {
	return printDict(r, p, cycle, "{", "}")
}

// MarshalJSON writes the entries as a JSON object in key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		v, err := plainValue(r.values[k])
		if err != nil {
			return nil, err
		}
		valBytes, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// plainValue materializes nested rows so encoders see plain records.
func plainValue(v any) (any, error) {
	switch tv := v.(type) {
	case *Record:
		return tv, nil
	case Row:
		return Materialize(tv)
	default:
		return v, nil
	}
}

// UnmarshalJSON reads a JSON object keeping the order of its members.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = Record{values: make(map[string]any)}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrCannotUnmarshal(r)
	}
	out := Record{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return ErrCannotUnmarshal(r)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := decodeJSONValue(raw)
		if err != nil {
			return err
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// decodeJSONValue turns integral JSON numbers into int64 and other
// numbers into float64; nested objects become records.
func decodeJSONValue(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		nested := NewRecord()
		if err := nested.UnmarshalJSON(trimmed); err != nil {
			return nil, err
		}
		return nested, nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, err
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			v, err := decodeJSONValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}
	return v, nil
}

var (
	_ gob.GobEncoder = (*Record)(nil)
	_ gob.GobDecoder = (*Record)(nil)
)

// gobRecord is the wire form of a Record under gob.
type gobRecord struct {
	Keys   []string
	Values []any
}

// GobEncode writes the entries as parallel key and value lists so that key
// order survives.
func (r *Record) GobEncode() ([]byte, error) {
	rec := gobRecord{
		Keys:   r.keys,
		Values: make([]any, len(r.keys)),
	}
	for i, k := range r.keys {
		v, err := plainValue(r.values[k])
		if err != nil {
			return nil, err
		}
		rec.Values[i] = v
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) GobDecode(data []byte) error {
	var rec gobRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return err
	}
	if len(rec.Keys) != len(rec.Values) {
		return ErrRowWidthMismatch(len(rec.Keys), len(rec.Values))
	}
	out := Record{
		keys:   make([]string, 0, len(rec.Keys)),
		values: make(map[string]any, len(rec.Keys)),
	}
	for i, k := range rec.Keys {
		out.Set(k, rec.Values[i])
	}
	*r = out
	return nil
}

var (
	_ msgpack.CustomEncoder = (*Record)(nil)
	_ msgpack.CustomDecoder = (*Record)(nil)
)

// EncodeMsgpack writes the entries as a msgpack map in key order.
func (r *Record) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(r.keys)); err != nil {
		return err
	}
	for _, k := range r.keys {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		v, err := plainValue(r.values[k])
		if err != nil {
			return err
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

func (r *Record) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	out := Record{values: make(map[string]any, max(n, 0))}
	for range max(n, 0) {
		k, err := dec.DecodeString()
		if err != nil {
			return err
		}
		v, err := dec.DecodeInterface()
		if err != nil {
			return err
		}
		out.Set(k, v)
	}
	*r = out
	return nil
}
