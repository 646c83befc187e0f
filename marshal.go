package tablerow

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"math"
	"reflect"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"rsc.io/ordered"
)

type Marshaler interface {
	Marshal(v any) (data []byte, err error)
}

type Unmarshaler interface {
	Unmarshal(data []byte, v any) error
}

// MarshalUnmarshaler encodes single column values for EncodedRow and the
// store.
type MarshalUnmarshaler interface {
	Marshaler
	Unmarshaler
}

var (
	JsonMaUn    MarshalUnmarshaler = jsonMarshalUnmarshaler{}
	GobMaUn     MarshalUnmarshaler = gobMarshalUnmarshaler{}
	MsgpackMaUn MarshalUnmarshaler = msgpackMarshalUnmarshaler{}
	orderedMaUn                    = orderedMarshalerUnmarshaler{}
)

// CodecByName resolves "json", "gob" or "msgpack".
func CodecByName(name string) (MarshalUnmarshaler, bool) {
	switch name {
	case "json":
		return JsonMaUn, true
	case "gob":
		return GobMaUn, true
	case "msgpack", "":
		return MsgpackMaUn, true
	default:
		return nil, false
	}
}

type jsonMarshalUnmarshaler struct{}

func (jsonMarshalUnmarshaler) Marshal(v any) ([]byte, error) {
	if rec, ok := v.(Row); ok {
		plain, err := plainValue(rec)
		if err != nil {
			return nil, err
		}
		v = plain
	}
	return json.Marshal(v)
}

// Unmarshal decodes numbers as int64 when integral, float64 otherwise, and
// objects as records.
func (jsonMarshalUnmarshaler) Unmarshal(data []byte, v any) error {
	target, ok := v.(*any)
	if !ok {
		return json.Unmarshal(data, v)
	}
	decoded, err := decodeJSONValue(data)
	if err != nil {
		return err
	}
	*target = decoded
	return nil
}

type gobMarshalUnmarshaler struct{}

// gobEnvelope carries the dynamic type of a column value; gob cannot send a
// bare interface at top level.
type gobEnvelope struct {
	V any
}

func init() {
	gob.Register([]any{})
	gob.Register(map[string]any{})
	gob.Register(time.Time{})
	gob.Register(&Record{})
}

func (gobMarshalUnmarshaler) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	err := encoder.Encode(gobEnvelope{V: v})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobMarshalUnmarshaler) Unmarshal(data []byte, v any) error {
	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	var env gobEnvelope
	if err := decoder.Decode(&env); err != nil {
		return err
	}
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return ErrCannotUnmarshal(v)
	}
	elem := target.Elem()
	if env.V == nil {
		elem.SetZero()
		return nil
	}
	decoded := reflect.ValueOf(env.V)
	if !decoded.Type().AssignableTo(elem.Type()) {
		return ErrCannotUnmarshal(v)
	}
	elem.Set(decoded)
	return nil
}

type msgpackMarshalUnmarshaler struct{}

func (msgpackMarshalUnmarshaler) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackMarshalUnmarshaler) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

type orderedMarshalerUnmarshaler struct{}

func (orderedMarshalerUnmarshaler) Marshal(v any) ([]byte, error) {
	vList, ok := v.([]any)
	if !ok {
		return nil, ErrCannotMarshal(v)
	}
	if !ordered.CanEncode(vList...) {
		return nil, ErrCannotMarshal(v)
	}
	return ordered.Encode(vList...), nil
}

func (orderedMarshalerUnmarshaler) Unmarshal(data []byte, v any) error {
	vList, ok := (v).(*[]any)
	if !ok {
		return ErrCannotUnmarshal(v)
	}
	decoded, err := ordered.DecodeAny(data)
	if err != nil {
		return err
	}
	*vList = decoded
	return nil
}

// ToKey encodes values so that byte order matches value order.
func ToKey(values ...any) ([]byte, error) {
	normalized := make([]any, len(values))
	for i, v := range values {
		normalized[i] = keyValue(v)
	}
	return orderedMaUn.Marshal(normalized)
}

// keyValue widens numbers so that 1, int8(1) and uint16(1) share one key.
// Whole floats index as integers for the same reason. Booleans index as 0
// and 1, times as Unix nanoseconds, and nil sorts after every other value.
func keyValue(v any) any {
	switch tv := v.(type) {
	case nil:
		return ordered.Infinity{}
	case bool:
		if tv {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return tv.UnixNano()
	}
	n := asNumber(v)
	switch n.kind {
	case signedNumber:
		return n.i
	case unsignedNumber:
		if n.u <= 1<<63-1 {
			return int64(n.u)
		}
		return n.u
	case floatNumber:
		if math.Abs(n.f) < 1<<63 && n.f == math.Trunc(n.f) {
			return int64(n.f)
		}
		return n.f
	default:
		return v
	}
}
