// Package file keeps each user document as a JSON file in a directory.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbonduro/measureiq/internal/docstore"
)

type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) Get(_ context.Context, userID string) ([]byte, error) {
	path, err := s.safeJoin(userID + ".json")
	if err != nil {
		return nil, err
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return doc, nil
}

// Put writes to a temporary file and renames it over the old document, so
// a reader never sees a half-written file.
func (s *Store) Put(_ context.Context, userID string, doc []byte) error {
	path, err := s.safeJoin(userID + ".json")
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(s.basePath, ".doc-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(doc); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		if rerr := os.Remove(tmp); rerr != nil {
			slog.Error("failed to remove file after write error", "error", rerr)
		}
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(tmp); rerr != nil {
			slog.Error("failed to remove file after close error", "error", rerr)
		}
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if rerr := os.Remove(tmp); rerr != nil {
			slog.Error("failed to remove file after rename error", "error", rerr)
		}
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}

// safeJoin resolves name relative to basePath and rejects directory traversal.
func (s *Store) safeJoin(name string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, name))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) || filepath.Dir(absPath) != absBase {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
