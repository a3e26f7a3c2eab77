package agent

import (
	"context"
	"errors"
	"strings"
)

var errEmptyKey = errors.New("key not found")

// Store prefixes every key with a namespace before touching the underlying cache.
type Store[S any] struct {
	core      Cache[S]
	namespace string
}

func NewStore[S any](core Cache[S], namespace string) Store[S] {
	return Store[S]{
		core:      core,
		namespace: namespace,
	}
}

func (c Store[S]) key(parts ...string) (string, error) {
	for _, p := range parts {
		if p == "" {
			return "", errEmptyKey
		}
	}
	return c.namespace + ":" + strings.Join(parts, ":"), nil
}

func (c Store[S]) Set(ctx context.Context, val S, parts ...string) error {
	key, err := c.key(parts...)
	if err != nil {
		return err
	}
	return c.core.Set(ctx, key, val)
}

func (c Store[S]) Get(ctx context.Context, parts ...string) (S, bool, error) {
	key, err := c.key(parts...)
	if err != nil {
		var zero S
		return zero, false, err
	}
	return c.core.Get(ctx, key)
}

func (c Store[S]) Del(ctx context.Context, parts ...string) error {
	key, err := c.key(parts...)
	if err != nil {
		return err
	}
	return c.core.Del(ctx, key)
}

func (c Store[S]) Exists(ctx context.Context, parts ...string) (bool, error) {
	key, err := c.key(parts...)
	if err != nil {
		return false, err
	}
	return c.core.Exists(ctx, key)
}
