package storage

import (
	"context"
	"fmt"

	"github.com/maruel/myaccount/internal/jsondb"
)

// userCollection resolves the list-shaped document of kind for one account.
//
// The user id is always an explicit argument: it comes from the
// authenticated session, never from request content.
type userCollection[T jsondb.Record] struct {
	store  *jsondb.Store
	layout Layout
	kind   Kind
}

func (c userCollection[T]) table(userID int) (*jsondb.Table[T], error) {
	p, err := c.layout.PathFor(userID, c.kind)
	if err != nil {
		return nil, err
	}
	return jsondb.NewTable[T](c.store, p, jsondb.ShapeList), nil
}

func (c userCollection[T]) all(ctx context.Context, userID int) ([]T, error) {
	t, err := c.table(userID)
	if err != nil {
		return nil, err
	}
	return t.All(ctx)
}

func (c userCollection[T]) get(ctx context.Context, userID, id int) (T, error) {
	t, err := c.table(userID)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.Get(ctx, id)
}

func (c userCollection[T]) insert(ctx context.Context, userID int, row T) error {
	t, err := c.table(userID)
	if err != nil {
		return err
	}
	row.SetID(0)
	_, err = t.Insert(ctx, row)
	return err
}

// update applies fn to the record and returns it, or ErrNotFound.
func (c userCollection[T]) update(ctx context.Context, userID, id int, fn func(T) error) (T, error) {
	var zero, out T
	t, err := c.table(userID)
	if err != nil {
		return zero, err
	}
	ok, err := t.Update(ctx, id, func(row T) error {
		if err := fn(row); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, fmt.Errorf("%s %d: %w", c.kind, id, ErrNotFound)
	}
	return out, nil
}

func (c userCollection[T]) delete(ctx context.Context, userID, id int) error {
	t, err := c.table(userID)
	if err != nil {
		return err
	}
	ok, err := t.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %d: %w", c.kind, id, ErrNotFound)
	}
	return nil
}

func (c userCollection[T]) count(ctx context.Context, userID int) (int, error) {
	t, err := c.table(userID)
	if err != nil {
		return 0, err
	}
	return t.Len(ctx)
}
