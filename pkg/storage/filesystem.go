package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// partialPrefix marks files still being written; cleanup and Open never see them.
const partialPrefix = ".partial-"

// LocalStorage keeps generated export files under a root directory. Names
// passed in are slash separated and relative to that root.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = "./exports"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve export root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create export root: %w", err)
	}
	return &LocalStorage{root: abs}, nil
}

// Save writes data atomically so a concurrent download never reads a half
// written workbook. It returns the normalised name.
func (s *LocalStorage) Save(name string, data []byte) (string, error) {
	target, rel, err := s.path(name)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, partialPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("stage export %s: %w", rel, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write export %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export %s: %w", rel, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod export %s: %w", rel, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("publish export %s: %w", rel, err)
	}
	return rel, nil
}

// Open returns the stored file; a missing file satisfies errors.Is(err, fs.ErrNotExist).
func (s *LocalStorage) Open(name string) (*os.File, error) {
	target, rel, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open export %s: %w", rel, err)
	}
	return f, nil
}

// Delete is a no-op for files that are already gone.
func (s *LocalStorage) Delete(name string) error {
	target, rel, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete export %s: %w", rel, err)
	}
	return nil
}

// CleanupOlderThan removes exports last modified before now-ttl, including
// abandoned partial writes, and returns the sorted names it removed.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	var removed []string

	walk := func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if !strings.HasPrefix(d.Name(), partialPrefix) {
			rel, _ := filepath.Rel(s.root, path)
			removed = append(removed, filepath.ToSlash(rel))
		}
		return nil
	}
	if err := filepath.WalkDir(s.root, walk); err != nil {
		return removed, fmt.Errorf("clean exports: %w", err)
	}
	sort.Strings(removed)
	return removed, nil
}

// path maps a relative name onto the root, refusing anything that escapes it.
func (s *LocalStorage) path(name string) (string, string, error) {
	rel := filepath.Clean(filepath.FromSlash(strings.TrimSpace(name)))
	if rel == "." || filepath.IsAbs(rel) || !filepath.IsLocal(rel) || strings.HasPrefix(filepath.Base(rel), partialPrefix) {
		return "", "", fmt.Errorf("invalid export name %q", name)
	}
	return filepath.Join(s.root, rel), filepath.ToSlash(rel), nil
}
