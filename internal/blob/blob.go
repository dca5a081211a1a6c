// Package blob stores opaque binary objects such as item photos.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned by Get and Delete for an unknown reference.
var ErrNotFound = errors.New("blob not found")

// Store saves byte payloads under generated references.
type Store interface {
	Put(ctx context.Context, data []byte) (ref string, err error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

var bucketBlobs = []byte("blobs")

// Bolt is a Store backed by a single bbolt file.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the blob file at path.
func OpenBolt(path string) (*Bolt, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating blob directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating blob bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close closes the underlying file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Put stores data under a new time-ordered reference.
func (b *Bolt) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty blob")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating blob ref: %w", err)
	}
	ref := id.String()

	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(ref), data)
	})
	if err != nil {
		return "", fmt.Errorf("storing blob: %w", err)
	}
	return ref, nil
}

// Get returns a copy of the blob stored under ref.
func (b *Bolt) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get([]byte(ref))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid for the life of the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading blob %s: %w", ref, err)
	}
	return data, nil
}

// Delete removes the blob stored under ref.
func (b *Bolt) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketBlobs)
		if bucket.Get([]byte(ref)) == nil {
			return ErrNotFound
		}
		return bucket.Delete([]byte(ref))
	})
	if err != nil {
		return fmt.Errorf("deleting blob %s: %w", ref, err)
	}
	return nil
}

// NewTestStore opens a Bolt store in a temporary directory, closed when the
// test ends.
func NewTestStore(t *testing.T) *Bolt {
	t.Helper()
	s, err := OpenBolt(filepath.Join(t.TempDir(), "blobs.db"))
	if err != nil {
		t.Fatalf("opening test blob store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
