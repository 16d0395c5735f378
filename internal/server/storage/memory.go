package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/dmitrijs2005/medscribe/internal/common"
)

// MediaPath prefixes the relative URLs of MemoryStore objects.
const MediaPath = "/api/media/"

type object struct {
	data        []byte
	contentType string
}

// MemoryStore keeps audio in process memory. It is used when no bucket is
// configured; the HTTP API serves its objects under MediaPath.
type MemoryStore struct {
	mu   sync.RWMutex
	objs map[string]object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objs: make(map[string]object)}
}

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objs[key] = object{data: b, contentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, "", common.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

func (s *MemoryStore) URL(_ context.Context, key string) (string, error) {
	return MediaPath + key, nil
}
