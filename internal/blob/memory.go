package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"

	"drive-go/internal/drive"
)

// MemoryStore is an in-memory implementation of the drive.BlobStore interface.
// It is useful for testing and safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

type memoryBlob struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memoryBlob)}
}

func (m *MemoryStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[path] = memoryBlob{data: data, contentType: contentType}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, path string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	b, ok := m.blobs[path]
	m.mu.RUnlock()
	if !ok {
		return drive.ErrBlobNotFound
	}
	if _, err := io.Copy(w, bytes.NewReader(b.data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[path]; !ok {
		return drive.ErrBlobNotFound
	}
	delete(m.blobs, path)
	return nil
}

// PresignGet returns a memory:// URL carrying the expiry. It grants nothing;
// it exists so tests can exercise the download path.
func (m *MemoryStore) PresignGet(ctx context.Context, path string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.blobs[path]
	m.mu.RUnlock()
	if !ok {
		return "", drive.ErrBlobNotFound
	}
	u := url.URL{Scheme: "memory", Path: "/" + path, RawQuery: url.Values{"ttl": {ttl.String()}}.Encode()}
	return u.String(), nil
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(ctx context.Context) error {
	return nil
}

// Paths returns every stored path, sorted.
func (m *MemoryStore) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.blobs))
	for p := range m.blobs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ContentType returns the content type recorded for path.
func (m *MemoryStore) ContentType(path string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blobs[path].contentType
}

var _ drive.BlobStore = (*MemoryStore)(nil)
