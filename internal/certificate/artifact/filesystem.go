package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStore writes rendered documents under a base directory and
// returns the relative path as the retrievable handle. Swappable for object
// storage behind the same Store port.
type FilesystemStore struct {
	baseDir string
}

func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &FilesystemStore{baseDir: baseDir}, nil
}

func (s *FilesystemStore) Save(_ context.Context, name string, data []byte) (string, error) {
	cleaned := filepath.Base(strings.TrimSpace(name))
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	path := filepath.Join(s.baseDir, cleaned)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize artifact: %w", err)
	}
	return cleaned, nil
}

// Open returns the stored bytes for a handle previously returned by Save.
func (s *FilesystemStore) Open(_ context.Context, handle string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, filepath.Base(handle)))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}
