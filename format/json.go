package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/longlodw/tablerow"
)

var _ Formatter = (*JSON)(nil)

// JSON writes one JSON object per row, keys in row order.
type JSON struct{}

func NewJSON() *JSON {
	return &JSON{}
}

func (jf *JSON) Name() string {
	return "json"
}

func (jf *JSON) Format(rows []tablerow.Row, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, row := range rows {
		rec, err := tablerow.Materialize(row)
		if err != nil {
			return fmt.Errorf("tablerow.Materialize: %w", err)
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("json.Encode: %w", err)
		}
	}
	return nil
}
