package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/streamhive/content-core/pkg/contentcore"
)

// ErrObjectNotFound is returned for keys with no stored object.
var ErrObjectNotFound = errors.New("object not found")

// Backend is an in-memory implementation of contentcore.BlobStore,
// intended for tests and local development.
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
	updated map[string]time.Time
}

// New creates a new in-memory storage backend.
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
		updated: make(map[string]time.Time),
	}
}

func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	b.updated[objectKey] = time.Now().UTC()
	return nil
}

func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return ErrObjectNotFound
	}
	delete(b.objects, objectKey)
	delete(b.updated, objectKey)
	return nil
}

// GetDownloadURL returns a synthetic memory:// URL so callers resolving
// thumbnails get a stable, assertable value.
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[objectKey]; !exists {
		return "", ErrObjectNotFound
	}
	return "memory://" + objectKey, nil
}

func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*contentcore.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, ErrObjectNotFound
	}
	return &contentcore.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: "application/octet-stream",
		UpdatedAt:   b.updated[objectKey],
	}, nil
}
