// Package repository defines error values shared across repositories so
// that handlers and the ledger engine can distinguish failure scenarios
// without inspecting driver errors. Missing rows surface as a
// NotFoundError carrying the entity kind and id, which gives the edge
// enough context to render a precise message.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is the sentinel matched by errors.Is for every
// NotFoundError, regardless of entity kind.
var ErrNotFound = errors.New("not found")

// NotFoundError reports that a referenced entity is absent or
// soft-deleted. Soft-deleted rows are treated as nonexistent by every
// lookup in this package.
type NotFoundError struct {
	Entity string
	ID     uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d was not found", e.Entity, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match any NotFoundError.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// notFound builds a NotFoundError for the given entity kind and id.
func notFound(entity string, id uint64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ErrEmailExists is returned when a user insert or update violates the
// unique email index. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrPositionTaken is returned when a station insert or update collides
// with an existing position on the same train. Positions order stations
// along the route and must be unique per train for fares to be reliable.
var ErrPositionTaken = errors.New("station position already taken on this train")

// isDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062 on a unique index).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
