package tablerow

import (
	"encoding/json"
	"fmt"
	"iter"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// View presents a backend Row as a read-only mapping. It holds the row by
// reference and copies nothing until Materialize or ToMap is called.
//
// The zero View wraps no row and must not be used.
type View struct {
	row Row
}

func NewView(r Row) View {
	if v, ok := r.(View); ok {
		return v
	}
	return View{row: r}
}

// Row returns the wrapped backend row.
func (v View) Row() Row {
	return v.row
}

func (v View) Get(key string) (any, error) {
	return v.row.Get(key)
}

func (v View) Keys() iter.Seq[string] {
	return v.row.Keys()
}

func (v View) Len() int {
	return v.row.Len()
}

func (v View) Contains(key string) bool {
	return Contains(v.row, key)
}

func (v View) Items() iter.Seq2[Item, error] {
	return Items(v.row)
}

func (v View) Materialize() (*Record, error) {
	return Materialize(v.row)
}

func (v View) ToMap() (map[string]any, error) {
	return ToMap(v.row)
}

func (v View) Equal(other Row) (bool, error) {
	return Equal(v.row, unwrap(other))
}

func (v View) String() string {
	s, err := Format(v.row)
	if err != nil {
		return formatError(err)
	}
	return s
}

func (v View) PrettyPrint(p *Printer, cycle bool) error {
	return viewPrinter(v.row, p, cycle)
}

// Format implements fmt.Formatter: %v and %s print the one-line form, %+v
// one entry per line, %q the quoted one-line form.
func (v View) Format(f fmt.State, verb rune) {
	var (
		s   string
		err error
	)
	switch {
	case verb == 'v' && f.Flag('+'):
		s, err = FormatIndent(v.row, "  ")
	case verb == 'v', verb == 's', verb == 'q':
		s, err = Format(v.row)
	default:
		fmt.Fprintf(f, "%%!%c(tablerow.View)", verb)
		return
	}
	if err != nil {
		s = formatError(err)
	}
	if verb == 'q' {
		s = strconv.Quote(s)
	}
	fmt.Fprint(f, s)
}

func (v View) MarshalJSON() ([]byte, error) {
	rec, err := v.Materialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

func (v View) EncodeMsgpack(enc *msgpack.Encoder) error {
	rec, err := v.Materialize()
	if err != nil {
		return err
	}
	return rec.EncodeMsgpack(enc)
}

func unwrap(r Row) Row {
	if v, ok := r.(View); ok {
		return v.row
	}
	return r
}
