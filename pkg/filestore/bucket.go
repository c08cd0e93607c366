// Package filestore keeps uploaded files in a blob bucket. The server uses a
// directory on local disk; tests may use memory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

var (
	// ErrInvalidName is returned for names that would escape the bucket root.
	ErrInvalidName = errors.New("invalid file name")
	// ErrNotFound is returned when no file is stored under a name.
	ErrNotFound = errors.New("file not found")
)

// Bucket stores files flat under their names.
type Bucket struct {
	bucket *blob.Bucket
}

// OpenDir creates dir if needed and returns a Bucket backed by it.
func OpenDir(dir string) (*Bucket, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	b, err := fileblob.OpenBucket(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload directory %s: %w", dir, err)
	}
	return &Bucket{bucket: b}, nil
}

// NewMemory returns a Bucket that keeps files in memory.
func NewMemory() *Bucket {
	return &Bucket{bucket: memblob.OpenBucket(nil)}
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save writes data under name, replacing any previous content.
func (b *Bucket) Save(ctx context.Context, name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := b.bucket.WriteAll(ctx, name, data, nil); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Read returns the content stored under name.
func (b *Bucket) Read(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := b.bucket.ReadAll(ctx, name)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Close releases the bucket.
func (b *Bucket) Close() error {
	return b.bucket.Close()
}
