package tablerow

import (
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// PrettyPrinter is implemented by values that render themselves through a
// Printer. cycle is true when the printer re-enters a value it is still
// rendering; implementations must then emit a short marker instead of
// recursing.
type PrettyPrinter interface {
	PrettyPrint(p *Printer, cycle bool) error
}

// Printer renders row values as text, tracking which values are currently
// being rendered so that self-referencing data terminates.
//
// With an empty indent everything is written on one line, e.g.
// {'a': 1, 'b': 'x'}. Otherwise each entry goes on its own line, nested by
// depth.
type Printer struct {
	sb       strings.Builder
	indent   string
	depth    int
	visiting map[uintptr]struct{}
}

func NewPrinter(indent string) *Printer {
	return &Printer{
		indent:   indent,
		visiting: make(map[uintptr]struct{}),
	}
}

func (p *Printer) String() string {
	return p.sb.String()
}

// Text writes s verbatim.
func (p *Printer) Text(s string) {
	p.sb.WriteString(s)
}

// BeginGroup writes open and nests the following entries one level deeper.
func (p *Printer) BeginGroup(open string) {
	p.sb.WriteString(open)
	p.depth++
}

// Breakable separates entries of a group: a space on one line, a newline
// and indentation otherwise. The first entry of a one-line group gets no
// separator.
func (p *Printer) Breakable(first bool) {
	if p.indent == "" {
		if !first {
			p.sb.WriteByte(' ')
		}
		return
	}
	p.newline()
}

// EndGroup closes a group opened with BeginGroup.
func (p *Printer) EndGroup(close string, empty bool) {
	p.depth--
	if p.indent != "" && !empty {
		p.newline()
	}
	p.sb.WriteString(close)
}

func (p *Printer) newline() {
	p.sb.WriteByte('\n')
	for range p.depth {
		p.sb.WriteString(p.indent)
	}
}

// Pretty renders v.
func (p *Printer) Pretty(v any) error {
	switch tv := v.(type) {
	case nil:
		p.Text("nil")
		return nil
	case PrettyPrinter:
		return p.enter(tv, func(cycle bool) error { return tv.PrettyPrint(p, cycle) })
	case Row:
		return p.enter(tv, func(cycle bool) error { return viewPrinter(tv, p, cycle) })
	case string:
		p.Text(quote(tv))
	case bool:
		p.Text(strconv.FormatBool(tv))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		p.Text(fmt.Sprint(tv))
	case float32:
		p.Text(formatFloat(float64(tv), 32))
	case float64:
		p.Text(formatFloat(tv, 64))
	case []byte:
		p.Text("0x" + hex.EncodeToString(tv))
	case time.Time:
		p.Text(quote(tv.Format(time.RFC3339Nano)))
	case []any:
		return p.enter(tv, func(cycle bool) error {
			if cycle {
				p.Text("[...]")
				return nil
			}
			p.BeginGroup("[")
			for i, e := range tv {
				if i > 0 {
					p.Text(",")
				}
				p.Breakable(i == 0)
				if err := p.Pretty(e); err != nil {
					return err
				}
			}
			p.EndGroup("]", len(tv) == 0)
			return nil
		})
	case map[string]any:
		return p.enter(tv, func(cycle bool) error {
			if cycle {
				p.Text("{...}")
				return nil
			}
			keys := make([]string, 0, len(tv))
			for k := range tv {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			p.BeginGroup("{")
			for i, k := range keys {
				if i > 0 {
					p.Text(",")
				}
				p.Breakable(i == 0)
				p.Text(quote(k))
				p.Text(": ")
				if err := p.Pretty(tv[k]); err != nil {
					return err
				}
			}
			p.EndGroup("}", len(keys) == 0)
			return nil
		})
	case fmt.Stringer:
		p.Text(tv.String())
	default:
		p.Text(fmt.Sprint(tv))
	}
	return nil
}

// enter calls render with cycle set when v is already being rendered.
func (p *Printer) enter(v any, render func(cycle bool) error) error {
	id := identityOf(v)
	if id == 0 {
		return render(false)
	}
	if _, ok := p.visiting[id]; ok {
		return render(true)
	}
	p.visiting[id] = struct{}{}
	defer delete(p.visiting, id)
	return render(false)
}

// DictPrinter returns a PrettyPrint body that renders a row as key: value
// entries between open and close, or open...close on a cycle.
func DictPrinter(open, close string) func(r Row, p *Printer, cycle bool) error {
	return func(r Row, p *Printer, cycle bool) error {
		return printDict(r, p, cycle, open, close)
	}
}

func printDict(r Row, p *Printer, cycle bool, open, close string) error {
	if cycle {
		p.Text(open + "..." + close)
		return nil
	}
	p.BeginGroup(open)
	i := 0
	for item, err := range Items(r) {
		if err != nil {
			return err
		}
		if i > 0 {
			p.Text(",")
		}
		p.Breakable(i == 0)
		p.Text(quote(item.Key))
		p.Text(": ")
		if err := p.Pretty(item.Value); err != nil {
			return err
		}
		i++
	}
	p.EndGroup(close, i == 0)
	return nil
}

func viewPrinter(r Row, p *Printer, cycle bool) error {
	return printDict(r, p, cycle, "{", "}")
}

// Format renders r on one line as {'key': value, ...}.
func Format(r Row) (string, error) {
	return render(r, "")
}

// FormatIndent renders r one entry per line.
func FormatIndent(r Row, indent string) (string, error) {
	return render(r, indent)
}

func render(r Row, indent string) (string, error) {
	p := NewPrinter(indent)
	if err := p.Pretty(r); err != nil {
		return "", err
	}
	return p.String(), nil
}

func formatError(err error) string {
	return "%!v(" + err.Error() + ")"
}

func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if strconv.IsPrint(r) {
				sb.WriteRune(r)
			} else {
				q := strconv.QuoteRune(r)
				sb.WriteString(q[1 : len(q)-1])
			}
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

// formatFloat always shows a fractional part or exponent so floats are
// distinguishable from integers.
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
