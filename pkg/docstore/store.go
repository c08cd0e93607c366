// Package docstore stores entities as flat string field-maps and keeps
// unordered id sets next to them. Values are opaque strings; encoding composite
// values is the caller's job.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrStoreUnavailable is returned (wrapped) whenever the backing store cannot
// serve a request. It is never used to signal a missing entity.
var ErrStoreUnavailable = errors.New("document store unavailable")

// Store is the contract every backend implements.
type Store interface {
	// WriteFields merges fields into the field-map at key. Fields not
	// mentioned are left untouched.
	WriteFields(ctx context.Context, key string, fields map[string]string) error
	// ReadFields returns the field-map at key. An empty map means not found.
	ReadFields(ctx context.Context, key string) (map[string]string, error)
	AddToSet(ctx context.Context, setKey, member string) error
	ListSet(ctx context.Context, setKey string) ([]string, error)
	SetCardinality(ctx context.Context, setKey string) (int64, error)
	// WriteIndexed merges fields into key and adds member to every set in
	// setKeys as one atomic batch.
	WriteIndexed(ctx context.Context, key string, fields map[string]string, member string, setKeys ...string) error
	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
