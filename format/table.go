package format

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/longlodw/tablerow"
)

var _ Formatter = (*Table)(nil)

// Table writes rows as an aligned table. Columns are the union of all row
// keys; a row without a column leaves its cell empty.
type Table struct{}

func NewTable() *Table {
	return &Table{}
}

func (tf *Table) Name() string {
	return "table"
}

func (tf *Table) Format(rows []tablerow.Row, w io.Writer) error {
	keys := header(rows)
	tableHeaders := make(table.Row, len(keys))
	for i, k := range keys {
		tableHeaders[i] = k
	}

	tableRows := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		cells := make(table.Row, len(keys))
		for i, k := range keys {
			v, err := row.Get(k)
			if tablerow.IsKeyNotFound(err) {
				cells[i] = ""
				continue
			}
			if err != nil {
				return err
			}
			cells[i] = cell(v)
		}
		tableRows = append(tableRows, cells)
	}

	t := table.NewWriter()
	t.AppendHeader(tableHeaders)
	t.AppendRows(tableRows)
	t.AppendSeparator()
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	t.Style().Options.DrawBorder = false
	render := t.Render()

	_, err := io.WriteString(w, render+"\n")
	return err
}

// cell renders nested values with the row printer; scalars go to the
// table writer as they are.
func cell(v any) any {
	switch v.(type) {
	case nil:
		return "nil"
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	}
	p := tablerow.NewPrinter("")
	if err := p.Pretty(v); err != nil {
		return "!" + err.Error()
	}
	return p.String()
}
