// Package docstore persists one opaque JSON document per user. Backends only
// move bytes; Load and Save add the empty-document and validation rules
// shared by all of them.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the user has never saved.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidDocument rejects a save whose body is not a JSON object.
	ErrInvalidDocument = errors.New("document must be a JSON object")
)

// Store is a whole-document blob store. Put replaces the stored document;
// concurrent writers resolve last-write-wins.
type Store interface {
	Get(ctx context.Context, userID string) ([]byte, error)
	Put(ctx context.Context, userID string, doc []byte) error
}

// Load returns the user's document, or "{}" when none was saved.
func Load(ctx context.Context, s Store, userID string) ([]byte, error) {
	doc, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

// Save validates doc and replaces the user's document with it.
func Save(ctx context.Context, s Store, userID string, doc []byte) error {
	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 || doc[0] != '{' || !json.Valid(doc) {
		return ErrInvalidDocument
	}
	if err := s.Put(ctx, userID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// Observer receives one call per backend operation.
type Observer interface {
	ObserveDocstore(backend, op string, err error)
}

type instrumented struct {
	Store
	backend string
	obs     Observer
}

// Instrument reports every Get and Put on s to obs. A missing document is
// not counted as an error.
func Instrument(s Store, backend string, obs Observer) Store {
	return &instrumented{Store: s, backend: backend, obs: obs}
}

func (s *instrumented) Get(ctx context.Context, userID string) ([]byte, error) {
	doc, err := s.Store.Get(ctx, userID)
	observed := err
	if errors.Is(err, ErrNotFound) {
		observed = nil
	}
	s.obs.ObserveDocstore(s.backend, "load", observed)
	return doc, err
}

func (s *instrumented) Put(ctx context.Context, userID string, doc []byte) error {
	err := s.Store.Put(ctx, userID, doc)
	s.obs.ObserveDocstore(s.backend, "save", err)
	return err
}
