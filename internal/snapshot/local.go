package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LocalStore writes snapshots under a directory on disk.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Save(_ context.Context, sourceID string, fetchedAt time.Time, payload []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(objectPath("", sourceID, fetchedAt)))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("creating source directory: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o640); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}

// Discard drops snapshots. Used when archiving is switched off.
type Discard struct{}

func (Discard) Save(context.Context, string, time.Time, []byte) (string, error) {
	return "", nil
}
