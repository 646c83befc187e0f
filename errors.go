package tablerow

import (
	"errors"
	"fmt"
)

// KeyNotFoundError reports a lookup of a key the row does not have.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key not found: %q", e.Key)
}

// ContractViolationError reports a backend whose primitives disagree with
// each other, e.g. Len() differs from the number of keys Keys() yields.
// It is a defect in the backend, not a runtime condition to recover from.
type ContractViolationError struct {
	Reason string
}

func (e *ContractViolationError) Error() string {
	return "row contract violation: " + e.Reason
}

// IsKeyNotFound reports whether err is, or wraps, a *KeyNotFoundError.
func IsKeyNotFound(err error) bool {
	var knf *KeyNotFoundError
	return errors.As(err, &knf)
}

var (
	ErrKeyNotFound    = func(key string) error { return &KeyNotFoundError{Key: key} }
	ErrLengthMismatch = func(length, counted int) error {
		return &ContractViolationError{Reason: fmt.Sprintf("Len() reported %d but Keys() yielded %d", length, counted)}
	}
	ErrDuplicateKey = func(key string) error {
		return &ContractViolationError{Reason: fmt.Sprintf("Keys() yielded %q more than once", key)}
	}

	// Backend construction errors
	ErrDuplicateColumn      = func(col string) error { return fmt.Errorf("duplicate column %s", col) }
	ErrColumnLengthMismatch = func(col string, expected, got int) error {
		return fmt.Errorf("column %s has %d values, expected %d", col, got, expected)
	}
	ErrRowWidthMismatch = func(expected, got int) error {
		return fmt.Errorf("row has %d values, expected %d", got, expected)
	}
	ErrRowIndexOutOfRange = func(idx, n int) error { return fmt.Errorf("row index %d out of range [0, %d)", idx, n) }
	ErrProjectionMissing  = func(baseField string) error {
		return fmt.Errorf("field %s not found in base row", baseField)
	}

	// Store errors
	ErrTableNotFound       = func(name string) error { return fmt.Errorf("table %s not found", name) }
	ErrTableExists         = func(name string) error { return fmt.Errorf("table %s already exists", name) }
	ErrMetaDataNotFound    = func(name string) error { return fmt.Errorf("metadata for table %s not found", name) }
	ErrColumnCountMismatch = func(expected, got int) error {
		return fmt.Errorf("row has %d columns, table expects %d", got, expected)
	}
	ErrColumnNotIndexed = func(col string) error { return fmt.Errorf("column %s is not indexed", col) }
	ErrRowNotFound      = func(table string, id uint64) error { return fmt.Errorf("row %d not found in table %s", id, table) }
	ErrCannotMarshal    = func(v any) error { return fmt.Errorf("cannot marshal value '%v' of type %T", v, v) }
	ErrCannotUnmarshal  = func(v any) error { return fmt.Errorf("cannot unmarshal into value of type %T", v) }
	ErrNoColumns        = errors.New("table must have at least one column")
)
