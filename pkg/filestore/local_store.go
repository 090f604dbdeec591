package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrOutsideRoot = errors.New("path escapes file store root")

// LocalStore keeps attachment bytes under a single directory on local disk.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create file store root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

// Save writes r under <root>/<conversationId>/<uuid>-<name> and returns the
// stored path and the number of bytes written.
func (s *LocalStore) Save(ctx context.Context, conversationId uuid.UUID, name string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	dir := filepath.Join(s.root, conversationId.String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, err
	}

	path := filepath.Join(dir, uuid.NewString()+"-"+filepath.Base(name))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return path, n, nil
}

// Delete removes the bytes at storagePath. A file that is already gone is not an error.
func (s *LocalStore) Delete(ctx context.Context, storagePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", storagePath, err)
	}

	// Drop the per-conversation directory once it is empty.
	dir := filepath.Dir(path)
	if dir != s.root {
		if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}
	return nil
}

func (s *LocalStore) resolve(storagePath string) (string, error) {
	path := storagePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	path = filepath.Clean(path)
	if path != s.root && !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", storagePath, ErrOutsideRoot)
	}
	return path, nil
}
