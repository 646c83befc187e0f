package tablerow

import (
	"bytes"
	"math"
	"reflect"
	"time"
)

// identityOf returns the address behind pointer-like values, or 0 when v
// has no stable identity (structs, scalars, nil).
func identityOf(v any) uintptr {
	if view, ok := v.(View); ok {
		v = view.row
	}
	if mr, ok := v.(*MapRow); ok && mr != nil {
		// a MapRow stands for the map it wraps
		v = mr.values
	}
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.UnsafePointer:
		return rv.Pointer()
	case reflect.Slice:
		if rv.Len() == 0 {
			return 0
		}
		return rv.Pointer()
	default:
		return 0
	}
}

type numberKind int

const (
	notNumber numberKind = iota
	signedNumber
	unsignedNumber
	floatNumber
)

type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

func asNumber(v any) number {
	switch n := v.(type) {
	case int:
		return number{kind: signedNumber, i: int64(n)}
	case int8:
		return number{kind: signedNumber, i: int64(n)}
	case int16:
		return number{kind: signedNumber, i: int64(n)}
	case int32:
		return number{kind: signedNumber, i: int64(n)}
	case int64:
		return number{kind: signedNumber, i: n}
	case uint:
		return number{kind: unsignedNumber, u: uint64(n)}
	case uint8:
		return number{kind: unsignedNumber, u: uint64(n)}
	case uint16:
		return number{kind: unsignedNumber, u: uint64(n)}
	case uint32:
		return number{kind: unsignedNumber, u: uint64(n)}
	case uint64:
		return number{kind: unsignedNumber, u: n}
	case float32:
		return number{kind: floatNumber, f: float64(n)}
	case float64:
		return number{kind: floatNumber, f: n}
	default:
		return number{}
	}
}

func (n number) float() float64 {
	switch n.kind {
	case signedNumber:
		return float64(n.i)
	case unsignedNumber:
		return float64(n.u)
	default:
		return n.f
	}
}

func numbersEqual(x, y number) bool {
	switch {
	case x.kind == floatNumber || y.kind == floatNumber:
		xf, yf := x.float(), y.float()
		if math.IsNaN(xf) || math.IsNaN(yf) {
			return false
		}
		return xf == yf
	case x.kind == signedNumber && y.kind == signedNumber:
		return x.i == y.i
	case x.kind == unsignedNumber && y.kind == unsignedNumber:
		return x.u == y.u
	case x.kind == signedNumber:
		return x.i >= 0 && uint64(x.i) == y.u
	default:
		return y.i >= 0 && uint64(y.i) == x.u
	}
}

// ValuesEqual compares two row values the way Equal compares entries.
func ValuesEqual(x, y any) (bool, error) {
	return valuesEqual(x, y, nil)
}

// valuesEqual compares two row values. Numbers compare by value regardless
// of their Go type, nested rows compare with Equal.
func valuesEqual(x, y any, seen map[rowPair]bool) (bool, error) {
	if x == nil || y == nil {
		return x == nil && y == nil, nil
	}
	if xn, yn := asNumber(x), asNumber(y); xn.kind != notNumber || yn.kind != notNumber {
		if xn.kind == notNumber || yn.kind == notNumber {
			return false, nil
		}
		return numbersEqual(xn, yn), nil
	}
	switch xv := x.(type) {
	case Row:
		switch yv := y.(type) {
		case Row:
			return rowsEqual(xv, yv, seen)
		case map[string]any:
			return rowsEqual(xv, NewMapRow(yv), seen)
		default:
			return false, nil
		}
	case string:
		yv, ok := y.(string)
		return ok && xv == yv, nil
	case []byte:
		yv, ok := y.([]byte)
		return ok && bytes.Equal(xv, yv), nil
	case time.Time:
		yv, ok := y.(time.Time)
		return ok && xv.Equal(yv), nil
	case []any:
		yv, ok := y.([]any)
		if !ok || len(xv) != len(yv) {
			return false, nil
		}
		seen, leave, first := track(seen, xv, yv)
		if !first {
			return true, nil
		}
		defer leave()
		for i := range xv {
			eq, err := valuesEqual(xv[i], yv[i], seen)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case map[string]any:
		if yr, ok := y.(Row); ok {
			return rowsEqual(NewMapRow(xv), yr, seen)
		}
		yv, ok := y.(map[string]any)
		if !ok || len(xv) != len(yv) {
			return false, nil
		}
		seen, leave, first := track(seen, xv, yv)
		if !first {
			return true, nil
		}
		defer leave()
		for k, xe := range xv {
			ye, ok := yv[k]
			if !ok {
				return false, nil
			}
			eq, err := valuesEqual(xe, ye, seen)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	}
	if _, ok := y.(Row); ok {
		return false, nil
	}
	return reflect.DeepEqual(x, y), nil
}

// track marks x and y as under comparison. first is false when they
// already are, meaning the comparison has come back around a cycle; the
// pair is then assumed equal.
func track(seen map[rowPair]bool, x, y any) (_ map[rowPair]bool, leave func(), first bool) {
	idx, idy := identityOf(x), identityOf(y)
	if idx == 0 || idy == 0 {
		return seen, func() {}, true
	}
	pair := rowPair{idx, idy}
	if seen[pair] {
		return seen, nil, false
	}
	if seen == nil {
		seen = make(map[rowPair]bool)
	}
	seen[pair] = true
	return seen, func() { delete(seen, pair) }, true
}
