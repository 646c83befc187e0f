// Package format writes batches of rows in the output formats of rowcat.
package format

import (
	"fmt"
	"io"

	"github.com/longlodw/tablerow"
)

type Formatter interface {
	Format(rows []tablerow.Row, w io.Writer) error
	Name() string
}

// ByName resolves "dict", "pretty", "table" or "json".
func ByName(name string) (Formatter, error) {
	switch name {
	case "dict", "":
		return NewDict(), nil
	case "pretty":
		return NewPretty("  "), nil
	case "table":
		return NewTable(), nil
	case "json":
		return NewJSON(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", name)
	}
}

// header collects the keys of rows in first-seen order.
func header(rows []tablerow.Row) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, row := range rows {
		for k := range row.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}
