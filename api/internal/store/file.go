package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var keyRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// File keeps each key in <dir>/<key>. Writes go to a temp file in the same
// directory and are renamed into place.
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("make dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (s *File) path(key string) (string, error) {
	if !keyRe.MatchString(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *File) Get(ctx context.Context, key string) (string, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (s *File) Set(ctx context.Context, key, value string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp: %w", err)
	}
	_ = tmp.Chmod(0o600)
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (s *File) Remove(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
