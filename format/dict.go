package format

import (
	"fmt"
	"io"

	"github.com/longlodw/tablerow"
)

var _ Formatter = (*Dict)(nil)

// Dict writes each row's one-line text form on its own line.
type Dict struct{}

func NewDict() *Dict {
	return &Dict{}
}

func (df *Dict) Name() string {
	return "dict"
}

func (df *Dict) Format(rows []tablerow.Row, w io.Writer) error {
	for _, row := range rows {
		s, err := tablerow.Format(row)
		if err != nil {
			return fmt.Errorf("tablerow.Format: %w", err)
		}
		if _, err := fmt.Fprintln(w, s); err != nil {
			return err
		}
	}
	return nil
}

var _ Formatter = (*Pretty)(nil)

// Pretty writes each row one entry per line.
type Pretty struct {
	indent string
}

func NewPretty(indent string) *Pretty {
	return &Pretty{indent: indent}
}

func (pf *Pretty) Name() string {
	return "pretty"
}

func (pf *Pretty) Format(rows []tablerow.Row, w io.Writer) error {
	for _, row := range rows {
		s, err := tablerow.FormatIndent(row, pf.indent)
		if err != nil {
			return fmt.Errorf("tablerow.FormatIndent: %w", err)
		}
		if _, err := fmt.Fprintln(w, s); err != nil {
			return err
		}
	}
	return nil
}
