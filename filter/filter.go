// Package filter parses boolean row predicates such as
//
//	age >= 30 AND NOT (name = 'bob' OR tags CONTAINS 'x')
//
// and evaluates them against any tablerow.Row.
package filter

import (
	"cmp"
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"

	"github.com/longlodw/tablerow"
)

type Op string

const (
	Eq       Op = "="
	Ne       Op = "!="
	Lt       Op = "<"
	Le       Op = "<="
	Gt       Op = ">"
	Ge       Op = ">="
	Contains Op = "CONTAINS"
)

// Expr is a parsed predicate.
type Expr interface {
	// Match reports whether r satisfies the predicate. It fails only when
	// reading r fails, including a column r does not have.
	Match(r tablerow.Row) (bool, error)
	String() string
}

// Parse compiles input into an Expr. AND binds tighter than OR.
func Parse(input string) (Expr, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty filter")
	}
	ast, err := filterParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return ast.expr()
}

// IndexHint returns the column and value of an expression that is a single
// equality test, which an index on that column can answer.
func IndexHint(e Expr) (column string, value any, ok bool) {
	c, isCmp := e.(*comparison)
	if !isCmp || c.op != Eq {
		return "", nil, false
	}
	return c.column, c.value, true
}

// Rows yields the rows of seq that satisfy e.
func Rows(e Expr, seq iter.Seq2[tablerow.Row, error]) iter.Seq2[tablerow.Row, error] {
	return func(yield func(tablerow.Row, error) bool) {
		for row, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			ok, err := e.Match(row)
			if err != nil {
				yield(nil, err)
				return
			}
			if ok && !yield(row, nil) {
				return
			}
		}
	}
}

type and struct {
	left, right Expr
}

func (a *and) Match(r tablerow.Row) (bool, error) {
	ok, err := a.left.Match(r)
	if err != nil || !ok {
		return false, err
	}
	return a.right.Match(r)
}

func (a *and) String() string {
	return "(" + a.left.String() + " AND " + a.right.String() + ")"
}

type or struct {
	left, right Expr
}

func (o *or) Match(r tablerow.Row) (bool, error) {
	ok, err := o.left.Match(r)
	if err != nil || ok {
		return ok, err
	}
	return o.right.Match(r)
}

func (o *or) String() string {
	return "(" + o.left.String() + " OR " + o.right.String() + ")"
}

type not struct {
	inner Expr
}

func (n *not) Match(r tablerow.Row) (bool, error) {
	ok, err := n.inner.Match(r)
	return !ok && err == nil, err
}

func (n *not) String() string {
	return "NOT " + n.inner.String()
}

type comparison struct {
	column string
	op     Op
	value  any
}

func (c *comparison) Match(r tablerow.Row) (bool, error) {
	v, err := r.Get(c.column)
	if err != nil {
		return false, err
	}
	switch c.op {
	case Eq:
		return tablerow.ValuesEqual(v, c.value)
	case Ne:
		eq, err := tablerow.ValuesEqual(v, c.value)
		return !eq && err == nil, err
	case Contains:
		return contains(v, c.value)
	}
	order, ok := compare(v, c.value)
	if !ok {
		// nulls and mismatched types are unordered
		return false, nil
	}
	switch c.op {
	case Lt:
		return order < 0, nil
	case Le:
		return order <= 0, nil
	case Gt:
		return order > 0, nil
	default:
		return order >= 0, nil
	}
}

func (c *comparison) String() string {
	return column(c.column) + " " + string(c.op) + " " + literal(c.value)
}

var (
	plainIdent    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	stringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	identEscaper  = strings.NewReplacer(`\`, `\\`)
)

// column renders name so that it lexes back as the same column.
func column(name string) string {
	if plainIdent.MatchString(name) && !keywords[strings.ToUpper(name)] {
		return name
	}
	return "`" + identEscaper.Replace(name) + "`"
}

func literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + stringEscaper.Replace(v) + "'"
	case bool:
		return strings.ToUpper(strconv.FormatBool(v))
	default:
		return fmt.Sprint(v)
	}
}

// compare orders two numbers or two strings.
func compare(x, y any) (int, bool) {
	if xi, ok := asInt(x); ok {
		if yi, ok := asInt(y); ok {
			return cmp.Compare(xi, yi), true
		}
	}
	if xf, ok := asFloat(x); ok {
		if yf, ok := asFloat(y); ok {
			return cmp.Compare(xf, yf), true
		}
		return 0, false
	}
	xs, ok := x.(string)
	if !ok {
		return 0, false
	}
	ys, ok := y.(string)
	if !ok {
		return 0, false
	}
	return strings.Compare(xs, ys), true
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// contains tests substrings of strings, elements of slices and keys of
// maps or nested rows.
func contains(v, want any) (bool, error) {
	switch v := v.(type) {
	case string:
		s, ok := want.(string)
		return ok && strings.Contains(v, s), nil
	case []any:
		for _, elem := range v {
			eq, err := tablerow.ValuesEqual(elem, want)
			if err != nil || eq {
				return eq, err
			}
		}
		return false, nil
	case map[string]any:
		key, ok := want.(string)
		if !ok {
			return false, nil
		}
		_, found := v[key]
		return found, nil
	case tablerow.Row:
		key, ok := want.(string)
		return ok && tablerow.Contains(v, key), nil
	default:
		return false, nil
	}
}
