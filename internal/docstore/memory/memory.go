// Package memory is a process-local document store for tests and demos.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/vbonduro/measureiq/internal/docstore"
)

type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, userID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[userID]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return bytes.Clone(doc), nil
}

func (s *Store) Put(_ context.Context, userID string, doc []byte) error {
	s.mu.Lock()
	s.docs[userID] = bytes.Clone(doc)
	s.mu.Unlock()
	return nil
}
