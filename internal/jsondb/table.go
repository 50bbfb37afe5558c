package jsondb

import (
	"context"
	"fmt"
	"slices"
	"strconv"
)

// Record is implemented by pointer types stored in a Table.
type Record interface {
	GetID() int
	SetID(id int)
}

// Shape selects the on-disk layout of a Table document.
type Shape int

const (
	// ShapeList stores records as a JSON array; each record carries its id.
	ShapeList Shape = iota
	// ShapeMap stores records as a JSON object keyed by the decimal id.
	ShapeMap
)

// Table is a typed collection of records stored in one document.
//
// Table keeps no state in memory: every call loads the document fresh, and
// every mutation runs under a single exclusive lock from load to persist.
type Table[T Record] struct {
	store *Store
	path  string
	shape Shape
}

// NewTable returns a Table over the document at path, relative to the store root.
func NewTable[T Record](store *Store, path string, shape Shape) *Table[T] {
	return &Table[T]{store: store, path: path, shape: shape}
}

// Path returns the document path relative to the store root.
func (t *Table[T]) Path() string {
	return t.path
}

// All returns every record. Map documents are returned in ascending id order,
// list documents in stored order. An absent document yields an empty slice.
func (t *Table[T]) All(ctx context.Context) ([]T, error) {
	rows, _, err := t.load(ctx)
	return rows, err
}

// Len returns the number of records.
func (t *Table[T]) Len(ctx context.Context) (int, error) {
	rows, _, err := t.load(ctx)
	return len(rows), err
}

// Get returns the record with the given id, or ErrNotFound.
func (t *Table[T]) Get(ctx context.Context, id int) (T, error) {
	rows, _, err := t.load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if i := indexOf(rows, id); i >= 0 {
		return rows[i], nil
	}
	var zero T
	return zero, fmt.Errorf("%s: id %d: %w", t.path, id, ErrNotFound)
}

// NextID returns the id the next Insert would assign.
//
// The value is informational: only Insert assigns ids, under the lock.
func (t *Table[T]) NextID(ctx context.Context) (int, error) {
	rows, m, err := t.load(ctx)
	if err != nil {
		return 0, err
	}
	return nextID(rows, m), nil
}

// Insert adds row and returns its id. A row with id 0 is assigned the next
// id; an explicit id already in use returns ErrDuplicateID.
func (t *Table[T]) Insert(ctx context.Context, row T) (int, error) {
	return t.InsertIf(ctx, row, nil)
}

// InsertIf is Insert with a precondition. check sees the current records
// under the same lock as the insertion; a non-nil error aborts the insert and
// is returned unchanged.
func (t *Table[T]) InsertIf(ctx context.Context, row T, check func(rows []T) error) (int, error) {
	err := t.modify(ctx, func(rows []T, m *meta) ([]T, error) {
		if check != nil {
			if err := check(rows); err != nil {
				return nil, err
			}
		}
		if id := row.GetID(); id == 0 {
			row.SetID(nextID(rows, *m))
		} else if indexOf(rows, id) >= 0 {
			return nil, fmt.Errorf("%s: id %d: %w", t.path, id, ErrDuplicateID)
		}
		return append(rows, row), nil
	})
	if err != nil {
		return 0, err
	}
	return row.GetID(), nil
}

// Update applies fn to the record with the given id and persists the result.
// It returns false without writing when the id is absent. The record id
// cannot be changed by fn. fn may return ErrSkipWrite to leave the document
// untouched.
func (t *Table[T]) Update(ctx context.Context, id int, fn func(row T) error) (bool, error) {
	found := false
	err := t.modify(ctx, func(rows []T, _ *meta) ([]T, error) {
		i := indexOf(rows, id)
		if i < 0 {
			return nil, ErrSkipWrite
		}
		found = true
		if err := fn(rows[i]); err != nil {
			return nil, err
		}
		rows[i].SetID(id)
		return rows, nil
	})
	return found, err
}

// Delete removes the record with the given id, keeping the order of the
// others. It returns false without writing when the id is absent.
func (t *Table[T]) Delete(ctx context.Context, id int) (bool, error) {
	found := false
	err := t.modify(ctx, func(rows []T, _ *meta) ([]T, error) {
		i := indexOf(rows, id)
		if i < 0 {
			return nil, ErrSkipWrite
		}
		found = true
		return slices.Delete(rows, i, i+1), nil
	})
	return found, err
}

// Modify runs fn over all records under one exclusive lock and persists the
// returned slice. Records returned with id 0 are assigned fresh ids.
// Returning ErrSkipWrite leaves the document untouched.
func (t *Table[T]) Modify(ctx context.Context, fn func(rows []T) ([]T, error)) error {
	return t.modify(ctx, func(rows []T, _ *meta) ([]T, error) {
		return fn(rows)
	})
}

func (t *Table[T]) load(ctx context.Context) ([]T, meta, error) {
	if t.shape == ShapeMap {
		var raw map[string]T
		_, m, err := t.store.view(ctx, t.path, &raw)
		if err != nil {
			return nil, m, err
		}
		rows, err := t.fromMap(raw)
		return rows, m, err
	}
	var rows []T
	_, m, err := t.store.view(ctx, t.path, &rows)
	if err != nil {
		return nil, m, err
	}
	return compact(rows), m, nil
}

func (t *Table[T]) modify(ctx context.Context, fn func(rows []T, m *meta) ([]T, error)) error {
	apply := func(rows []T, m *meta) (any, error) {
		before := maxID(rows)
		out, err := fn(rows, m)
		if err != nil {
			return nil, err
		}
		out = compact(out)
		// Ids removed in this cycle stay reserved.
		m.LastID = max(m.LastID, before)
		for _, row := range out {
			if row.GetID() == 0 {
				row.SetID(nextID(out, *m))
			}
		}
		m.LastID = max(m.LastID, maxID(out))
		if t.shape == ShapeMap {
			return toMap(out), nil
		}
		return out, nil
	}
	if t.shape == ShapeMap {
		var raw map[string]T
		return t.store.modify(ctx, t.path, &raw, func(_ bool, m *meta) (any, error) {
			rows, err := t.fromMap(raw)
			if err != nil {
				return nil, err
			}
			return apply(rows, m)
		})
	}
	var rows []T
	return t.store.modify(ctx, t.path, &rows, func(_ bool, m *meta) (any, error) {
		return apply(compact(rows), m)
	})
}

func (t *Table[T]) fromMap(raw map[string]T) ([]T, error) {
	rows := make([]T, 0, len(raw))
	for k, row := range raw {
		id, err := strconv.Atoi(k)
		if err != nil || id <= 0 {
			return nil, &DecodeError{Path: t.path, Err: fmt.Errorf("invalid record key %q", k)}
		}
		if isNil(row) {
			continue
		}
		row.SetID(id)
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b T) int { return a.GetID() - b.GetID() })
	return rows, nil
}

func toMap[T Record](rows []T) map[string]T {
	out := make(map[string]T, len(rows))
	for _, row := range rows {
		out[strconv.Itoa(row.GetID())] = row
	}
	return out
}

// compact drops JSON null entries and never returns nil, so that an empty
// collection is written as [] rather than null.
func compact[T Record](rows []T) []T {
	out := rows[:0:0]
	for _, row := range rows {
		if !isNil(row) {
			out = append(out, row)
		}
	}
	if out == nil {
		out = []T{}
	}
	return out
}

// isNil reports a typed nil pointer, which is what JSON null decodes to.
func isNil[T Record](row T) bool {
	var zero T
	return any(row) == any(zero)
}

func indexOf[T Record](rows []T, id int) int {
	return slices.IndexFunc(rows, func(row T) bool { return row.GetID() == id })
}

func maxID[T Record](rows []T) int {
	m := 0
	for _, row := range rows {
		m = max(m, row.GetID())
	}
	return m
}

func nextID[T Record](rows []T, m meta) int {
	return max(maxID(rows), m.LastID) + 1
}
