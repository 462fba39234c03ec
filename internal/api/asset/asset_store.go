package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/FACorreiaa/sports-card-catalog/internal/types"
)

var _ Store = (*LocalStore)(nil)

// Store persists asset bytes under flat names.
type Store interface {
	// Put writes r under name and returns the number of bytes written.
	Put(ctx context.Context, name string, r io.Reader, contentType string) (int64, error)
	// Open returns the bytes stored under name, or types.ErrNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// LocalStore keeps assets as files in a single directory.
type LocalStore struct {
	dir    string
	logger *slog.Logger
}

func NewLocalStore(dir string, logger *slog.Logger) *LocalStore {
	return &LocalStore{dir: dir, logger: logger}
}

// Dir is the directory assets are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put creates the directory if needed and writes a new file. Names are
// never overwritten; an existing file fails the write.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader, _ string) (int64, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: creating %s: %w", ErrWrite, s.dir, err)
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: creating %s: %w", ErrWrite, path, err)
	}

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			s.logger.WarnContext(ctx, "Failed to remove partial asset", slog.String("path", path), slog.Any("error", rmErr))
		}
		return 0, fmt.Errorf("%w: writing %s: %w", ErrWrite, path, err)
	}
	return n, nil
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("asset %s: %w", name, types.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: opening %s: %w", types.ErrIOFailure, name, err)
	}
	return f, nil
}
