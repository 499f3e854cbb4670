package testutil

import (
	"context"
	"io"
	"sync"

	"drive-go/internal/blob"
	"drive-go/internal/drive"
)

// NewTestBlobStore creates a new in-memory blob store for testing.
func NewTestBlobStore() *blob.MemoryStore {
	return blob.NewMemoryStore()
}

// FaultyBlobStore wraps a MemoryStore and fails selected operations.
// Errors are set per operation; a nil error passes the call through.
type FaultyBlobStore struct {
	*blob.MemoryStore

	mu        sync.Mutex
	putErr    error
	getErr    error
	deleteErr error
	deletes   []string
}

func NewFaultyBlobStore() *FaultyBlobStore {
	return &FaultyBlobStore{MemoryStore: blob.NewMemoryStore()}
}

func (s *FaultyBlobStore) FailPut(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

func (s *FaultyBlobStore) FailGet(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
}

func (s *FaultyBlobStore) FailDelete(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = err
}

// Deletes returns every path Delete was called with, in order.
func (s *FaultyBlobStore) Deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

func (s *FaultyBlobStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	err := s.putErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.Put(ctx, path, r, size, contentType)
}

func (s *FaultyBlobStore) Get(ctx context.Context, path string, w io.Writer) error {
	s.mu.Lock()
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.Get(ctx, path, w)
}

func (s *FaultyBlobStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, path)
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.Delete(ctx, path)
}

var _ drive.BlobStore = (*FaultyBlobStore)(nil)
