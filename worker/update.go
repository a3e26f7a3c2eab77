package worker

import (
	"context"
	"fmt"

	"github.com/tbxark/intakebot/patch"
)

// MutablePaths are the record members clients may change. id and createdAt are fixed.
var MutablePaths = []string{
	"/fullName",
	"/category",
	"/location",
	"/phoneNumber",
	"/experience",
	"/rating",
	"/reviewCount",
	"/availability",
}

// Patch applies RFC 6902 operations to the stored record and saves the result.
func Patch(ctx context.Context, store Store, id string, ops []patch.Operation) (Record, error) {
	current, ok, err := store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := patch.ValidatePaths(ops, MutablePaths); err != nil {
		return Record{}, err
	}
	next, err := patch.ApplyRFC6902(current, ops)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if next.Category, err = ParseCategory(string(next.Category)); err != nil {
		return Record{}, err
	}
	if err := store.Update(ctx, next); err != nil {
		return Record{}, err
	}
	return next, nil
}

// Replace overwrites the mutable members of the stored record with those of next. An
// empty id or zero createdAt in next keeps the stored value; any other value must match.
func Replace(ctx context.Context, store Store, id string, next Record) (Record, error) {
	current, ok, err := store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if next.ID == "" {
		next.ID = current.ID
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = current.CreatedAt
	}
	ops, err := patch.Diff(current, next)
	if err != nil {
		return Record{}, err
	}
	return Patch(ctx, store, id, ops)
}
