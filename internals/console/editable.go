// file: internals/console/editable.go
package console

import (
	"reflect"
	"sort"

	"github.com/bytedance/sonic"
)

// Change is one top-level field that differs between draft and committed,
// keyed by its JSON name.
type Change struct {
	Field string
	From  any
	To    any
}

// Editable holds a committed snapshot and the draft being edited. Every
// operation returns a new value; snapshots are deep copies.
type Editable[T any] struct {
	committed T
	draft     T
}

func NewEditable[T any](v T) Editable[T] {
	return Editable[T]{committed: clone(v), draft: clone(v)}
}

func (e Editable[T]) Committed() T { return clone(e.committed) }
func (e Editable[T]) Draft() T     { return clone(e.draft) }

// Edit applies fn to a copy of the draft.
func (e Editable[T]) Edit(fn func(T) T) Editable[T] {
	return Editable[T]{committed: e.committed, draft: clone(fn(clone(e.draft)))}
}

// Diff lists changed fields in name order.
func (e Editable[T]) Diff() []Change {
	a, b := fields(e.committed), fields(e.draft)

	keys := make([]string, 0, len(a)+len(b))
	seen := map[string]bool{}
	for k := range a {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range b {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []Change
	for _, k := range keys {
		if !reflect.DeepEqual(a[k], b[k]) {
			out = append(out, Change{Field: k, From: a[k], To: b[k]})
		}
	}
	return out
}

func (e Editable[T]) HasChanges() bool { return len(e.Diff()) > 0 }

// Reset drops the draft back to the committed snapshot.
func (e Editable[T]) Reset() Editable[T] {
	return Editable[T]{committed: e.committed, draft: clone(e.committed)}
}

// Commit makes saved (the server's copy) both committed and draft.
func (e Editable[T]) Commit(saved T) Editable[T] {
	return NewEditable(saved)
}

func fields(v any) map[string]any {
	out := map[string]any{}
	raw, err := sonic.Marshal(v)
	if err != nil {
		return out
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return map[string]any{"": string(raw)}
	}
	return out
}

// clone deep-copies v through its JSON form; values that fail to encode are
// returned as is.
func clone[T any](v T) T {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
