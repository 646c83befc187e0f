package filter

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var keywords = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "TRUE": true, "FALSE": true, "NULL": true, "CONTAINS": true,
}

var (
	filterLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Keyword", Pattern: `(?i)\b(AND|OR|NOT|TRUE|FALSE|NULL|CONTAINS)\b`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "QuotedIdent", Pattern: "`(?:\\\\.|[^`\\\\])*`"},
		{Name: "Number", Pattern: `[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},
		{Name: "String", Pattern: `'(?:\\.|[^'\\])*'|"(?:\\.|[^"\\])*"`},
		{Name: "Operator", Pattern: `>=|<=|!=|[=<>]`},
		{Name: "Punct", Pattern: `[()]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	filterParser = participle.MustBuild[astOr](
		participle.Lexer(filterLexer),
		participle.Unquote("String", "QuotedIdent"),
		participle.CaseInsensitive("Keyword"),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

type astOr struct {
	And []*astAnd `parser:"@@ ('OR' @@)*"`
}

type astAnd struct {
	Terms []*astTerm `parser:"@@ ('AND' @@)*"`
}

type astTerm struct {
	Not     *astTerm       `parser:"  'NOT' @@"`
	Grouped *astOr         `parser:"| '(' @@ ')'"`
	Compare *astComparison `parser:"| @@"`
}

type astComparison struct {
	Column string      `parser:"@(Ident | QuotedIdent)"`
	Op     string      `parser:"@('=' | '!=' | '<=' | '>=' | '<' | '>' | 'CONTAINS')"`
	Value  *astLiteral `parser:"@@"`
}

type astLiteral struct {
	Number *string `parser:"  @Number"`
	String *string `parser:"| @String"`
	Bool   *string `parser:"| @('TRUE' | 'FALSE')"`
	Null   bool    `parser:"| @'NULL'"`
}

func (o *astOr) expr() (Expr, error) {
	var out Expr
	for i, a := range o.And {
		e, err := a.expr()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			out = e
			continue
		}
		out = &or{left: out, right: e}
	}
	return out, nil
}

func (a *astAnd) expr() (Expr, error) {
	var out Expr
	for i, t := range a.Terms {
		e, err := t.expr()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			out = e
			continue
		}
		out = &and{left: out, right: e}
	}
	return out, nil
}

func (t *astTerm) expr() (Expr, error) {
	switch {
	case t.Not != nil:
		e, err := t.Not.expr()
		if err != nil {
			return nil, err
		}
		return &not{inner: e}, nil
	case t.Grouped != nil:
		return t.Grouped.expr()
	default:
		value, err := t.Compare.Value.value()
		if err != nil {
			return nil, err
		}
		return &comparison{
			column: t.Compare.Column,
			op:     Op(strings.ToUpper(t.Compare.Op)),
			value:  value,
		}, nil
	}
}

// value converts the literal to the Go type a decoded row value would have.
// Integers become int64 and other numbers float64.
func (l *astLiteral) value() (any, error) {
	switch {
	case l.Number != nil:
		if i, err := strconv.ParseInt(*l.Number, 10, 64); err == nil {
			return i, nil
		}
		return strconv.ParseFloat(*l.Number, 64)
	case l.String != nil:
		return *l.String, nil
	case l.Bool != nil:
		return strings.EqualFold(*l.Bool, "TRUE"), nil
	default:
		return nil, nil
	}
}
