// Package kv is the persistence boundary: named slots each holding one opaque blob.
// Reads return the whole blob or ErrNotFound; writes replace it wholly.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the slot has never been written.
var ErrNotFound = errors.New("kv: slot not found")

// Store reads and replaces whole slots.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ChangeHandler receives the origin of the instance that wrote the slot.
type ChangeHandler func(origin string)

// Watcher is implemented by backends that signal slot writes to other instances.
// The backend fires the signal from Set; callers never publish it themselves.
type Watcher interface {
	Watch(ctx context.Context, key string, fn ChangeHandler) (cancel func(), err error)
	Origin() string
}
