// Package rowtest checks that a tablerow.Row implementation keeps the
// contract its derived operations rely on.
package rowtest

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/longlodw/tablerow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Check exercises r and returns every contract violation it finds, or nil.
//
// It verifies that Len matches Keys, that Keys is unique and restartable,
// that every key resolves, that Items and Materialize agree with Get, that
// a key outside the row fails with a *tablerow.KeyNotFoundError, and that
// r equals its own materialized form.
func Check(r tablerow.Row) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	keys := slices.Collect(r.Keys())
	if len(keys) != r.Len() {
		fail("Len() = %d but Keys() yielded %d keys", r.Len(), len(keys))
	}
	if again := slices.Collect(r.Keys()); !slices.Equal(keys, again) {
		fail("Keys() not restartable: %q then %q", keys, again)
	}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			fail("Keys() yielded %q twice", k)
		}
		seen[k] = struct{}{}
	}

	values := make(map[string]any, len(keys))
	for _, k := range keys {
		v, err := r.Get(k)
		if err != nil {
			fail("Get(%q): %v", k, err)
			continue
		}
		values[k] = v
		if !tablerow.Contains(r, k) {
			fail("Contains(%q) = false for a key from Keys()", k)
		}
	}

	i := 0
	for item, err := range tablerow.Items(r) {
		if err != nil {
			fail("Items: %v", err)
			break
		}
		if i >= len(keys) || item.Key != keys[i] {
			fail("Items pair %d has key %q, out of Keys() order", i, item.Key)
		} else if eq, err := tablerow.ValuesEqual(item.Value, values[item.Key]); err != nil || !eq {
			fail("Items value for %q differs from Get", item.Key)
		}
		i++
	}
	if i != len(keys) {
		fail("Items yielded %d pairs, want %d", i, len(keys))
	}

	rec, err := tablerow.Materialize(r)
	if err != nil {
		fail("Materialize: %v", err)
	} else {
		if got := slices.Collect(rec.Keys()); !slices.Equal(got, keys) {
			fail("Materialize order %q, want %q", got, keys)
		}
		if eq, err := tablerow.Equal(r, rec); err != nil || !eq {
			fail("row not equal to its materialized form (err: %v)", err)
		}
	}

	missing := absentKey(seen)
	if _, err := r.Get(missing); !tablerow.IsKeyNotFound(err) {
		fail("Get(%q) on an absent key returned %v, want KeyNotFoundError", missing, err)
	} else {
		var knf *tablerow.KeyNotFoundError
		if errors.As(err, &knf) && knf.Key != missing {
			fail("KeyNotFoundError carries %q, want %q", knf.Key, missing)
		}
	}
	if tablerow.Contains(r, missing) {
		fail("Contains(%q) = true for an absent key", missing)
	}

	return errors.Join(errs...)
}

func absentKey(present map[string]struct{}) string {
	key := "\x00absent"
	for {
		if _, ok := present[key]; !ok {
			return key
		}
		key += "_"
	}
}

// Run fails t if r breaks the row contract or if its contents differ from
// want. A nil want skips the content comparison.
func Run(t testing.TB, r tablerow.Row, want map[string]any) {
	t.Helper()
	require.NoError(t, Check(r))
	if want == nil {
		return
	}
	eq, err := tablerow.Equal(r, tablerow.NewMapRow(want))
	require.NoError(t, err)
	if !eq {
		got, _ := tablerow.ToMap(r)
		assert.Equal(t, want, got)
		t.FailNow()
	}
}
