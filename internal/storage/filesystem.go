package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
)

// FileStore persists artifacts onto the local filesystem, one directory per kind.
type FileStore struct {
	dirs map[entity.ArtifactKind]string
}

// NewFileStore initializes a FileStore and creates both directories.
func NewFileStore(uploadDir, processedDir string) (*FileStore, error) {
	dirs := map[entity.ArtifactKind]string{
		entity.KindUploads:   strings.TrimSpace(uploadDir),
		entity.KindProcessed: strings.TrimSpace(processedDir),
	}
	for kind, dir := range dirs {
		if dir == "" {
			return nil, fmt.Errorf("storage: %s directory is required", kind)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure %s directory: %w", kind, err)
		}
	}
	return &FileStore{dirs: dirs}, nil
}

// Dir returns the directory holding kind.
func (s *FileStore) Dir(kind entity.ArtifactKind) string {
	if s == nil {
		return ""
	}
	return s.dirs[kind]
}

func (s *FileStore) path(kind entity.ArtifactKind, name string) (string, error) {
	if err := check(kind, name); err != nil {
		return "", err
	}
	return filepath.Join(s.dirs[kind], name), nil
}

// Put writes through a temp file so readers never see a partial artifact.
func (s *FileStore) Put(ctx context.Context, kind entity.ArtifactKind, name string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.path(kind, name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".put-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("storage: publish file: %w", err)
	}
	return nil
}

func (s *FileStore) Open(ctx context.Context, kind entity.ArtifactKind, name string) (io.ReadSeekCloser, Info, error) {
	full, err := s.path(kind, name)
	if err != nil {
		return nil, Info{}, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Info{}, err
	}
	if st.IsDir() {
		f.Close()
		return nil, Info{}, ErrNotFound
	}
	return f, Info{Size: st.Size(), ModTime: st.ModTime(), ContentType: ContentTypeFor(name)}, nil
}

func (s *FileStore) Delete(ctx context.Context, kind entity.ArtifactKind, name string) error {
	full, err := s.path(kind, name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *FileStore) Sweep(ctx context.Context, kind entity.ArtifactKind, before time.Time) (int, error) {
	if !kind.Valid() {
		return 0, ErrInvalidKind
	}
	entries, err := os.ReadDir(s.dirs[kind])
	if err != nil {
		return 0, err
	}

	var (
		removed int
		result  *multierror.Error
	)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".put-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if !info.ModTime().Before(before) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dirs[kind], e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			result = multierror.Append(result, err)
			continue
		}
		removed++
	}
	return removed, result.ErrorOrNil()
}
