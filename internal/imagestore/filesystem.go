package imagestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Filesystem implements Store on a local directory. References are uuid-named
// files relative to the base directory.
type Filesystem struct {
	baseDir string
}

// NewFilesystem creates the base directory if needed and returns a Filesystem store.
func NewFilesystem(baseDir string) (*Filesystem, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &Filesystem{baseDir: baseDir}, nil
}

func (f *Filesystem) Save(_ context.Context, originalName string, data []byte) (string, error) {
	ext := filepath.Ext(filepath.Base(originalName))
	ref := uuid.New().String() + ext

	if err := os.WriteFile(filepath.Join(f.baseDir, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return ref, nil
}

func (f *Filesystem) Load(_ context.Context, ref string) ([]byte, error) {
	path, err := f.resolve(ref)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

func (f *Filesystem) Remove(_ context.Context, ref string) error {
	path, err := f.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// resolve joins ref onto the base directory, rejecting path traversal.
func (f *Filesystem) resolve(ref string) (string, error) {
	path := filepath.Join(f.baseDir, ref)
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(f.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid image reference %q", ref)
	}
	return path, nil
}

var _ Store = (*Filesystem)(nil)
